// Package config loads workdigest settings.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults (Default)
//  2. an optional YAML file
//  3. environment variables, after loading .env files
//  4. command-line flags, applied by the cmd package
//
// Environment variables are bound through `env` struct tags. A tag may list
// several names separated by commas; the first one that is set wins, so
// LLM_API_KEY takes precedence over GROQ_API_KEY.
//
// .env files are loaded in this order, never overriding variables that are
// already set: the file named by ENV_FILE (alone, if set), otherwise
// .env.local and then .env.
package config
