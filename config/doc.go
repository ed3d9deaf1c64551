// Package config loads catalogsync settings from the environment.
//
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it. Missing credentials are a
// configuration failure and stop the process before any network or database
// activity.
package config
