package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// applyEnv sets every field carrying an `env` tag from the first listed
// variable that is set and non-empty.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	return applyEnvToStruct(reflect.ValueOf(cfg).Elem(), lookup)
}

func applyEnvToStruct(v reflect.Value, lookup func(string) (string, bool)) error {
	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := applyEnvToStruct(field, lookup); err != nil {
				return err
			}
			continue
		}

		tag := t.Field(i).Tag.Get("env")
		if tag == "" {
			continue
		}
		for _, name := range strings.Split(tag, ",") {
			val, ok := lookup(strings.TrimSpace(name))
			if !ok || strings.TrimSpace(val) == "" {
				continue
			}
			if err := setField(field, strings.TrimSpace(val)); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			break
		}
	}
	return nil
}

func setField(field reflect.Value, val string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
	case field.Kind() == reflect.String:
		field.SetString(val)
	case field.Kind() == reflect.Int:
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		field.SetInt(int64(n))
	case field.Kind() == reflect.Float64:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
