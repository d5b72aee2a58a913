// Package cache provides a Redis-backed pipeline.ResultCache so repeated
// runs over unchanged items skip the language model.
package cache
