// Package config provides a typed accessor over the Configuration table,
// coercing by valType and cached per request rather than process-wide so an
// operator's change takes effect on the next call.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"codecourt/store"
)

// Defaults seeded at boot the same idempotent way the teacher's main.go
// ensures schema columns exist before serving traffic.
var Defaults = []store.Configuration{
	{Key: "strict_whitespace_diffing", Val: "false", ValType: store.ValBool, Category: "judging"},
	{Key: "max_user_submissions", Val: "5", ValType: store.ValInt, Category: "rate_limit"},
	{Key: "user_submission_time_limit", Val: "1", ValType: store.ValInt, Category: "rate_limit"},
	{Key: "max_output_length", Val: "64", ValType: store.ValInt, Category: "http"},
	{Key: "extra_signup_fields", Val: "[]", ValType: store.ValJSON, Category: "signup"},
	{Key: "executor_timeout_minutes", Val: "2", ValType: store.ValInt, Category: "judging"},
	{Key: "run_timeout_seconds", Val: "5", ValType: store.ValInt, Category: "sandbox"},
	{Key: "mem_limit_mib", Val: "128", ValType: store.ValInt, Category: "sandbox"},
	{Key: "pid_limit", Val: "50", ValType: store.ValInt, Category: "sandbox"},
	{Key: "output_limit_chars", Val: "100000", ValType: store.ValInt, Category: "sandbox"},
}

// configStore is the narrow slice of *store.Store this package needs,
// satisfied implicitly, so tests can supply a fake without a database.
type configStore interface {
	GetConfiguration(ctx context.Context, key string) (store.Configuration, error)
	SetConfiguration(ctx context.Context, c store.Configuration) error
}

// Accessor reads configuration through the store, coercing values by
// valType. It caches nothing across calls — callers wanting a stable view
// for the duration of one request should read once and reuse the result.
type Accessor struct {
	store configStore
}

func New(s configStore) *Accessor {
	return &Accessor{store: s}
}

// EnsureDefaults seeds any configuration keys missing from the store. Safe
// to call on every boot: existing rows are left untouched.
func (a *Accessor) EnsureDefaults(ctx context.Context) error {
	for _, d := range Defaults {
		if _, err := a.store.GetConfiguration(ctx, d.Key); err != nil {
			if err := a.store.SetConfiguration(ctx, d); err != nil {
				return fmt.Errorf("config: seed %s: %w", d.Key, err)
			}
		}
	}
	return nil
}

func (a *Accessor) Int(ctx context.Context, key string) (int, error) {
	c, err := a.store.GetConfiguration(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(c.Val)
}

func (a *Accessor) Bool(ctx context.Context, key string) (bool, error) {
	c, err := a.store.GetConfiguration(ctx, key)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(c.Val)
}

func (a *Accessor) String(ctx context.Context, key string) (string, error) {
	c, err := a.store.GetConfiguration(ctx, key)
	if err != nil {
		return "", err
	}
	return c.Val, nil
}

func (a *Accessor) JSON(ctx context.Context, key string, out any) error {
	c, err := a.store.GetConfiguration(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(c.Val), out)
}

// IntOrDefault tolerates a missing key so callers don't have to special-case
// a fresh database that hasn't run EnsureDefaults yet.
func (a *Accessor) IntOrDefault(ctx context.Context, key string, def int) int {
	v, err := a.Int(ctx, key)
	if err != nil {
		return def
	}
	return v
}

func (a *Accessor) BoolOrDefault(ctx context.Context, key string, def bool) bool {
	v, err := a.Bool(ctx, key)
	if err != nil {
		return def
	}
	return v
}

// setRaw overwrites a configuration value, preserving the valType declared
// in Defaults (or ValString for keys Defaults doesn't know about) so a seed
// file can't silently retype a key the accessors coerce elsewhere.
func (a *Accessor) setRaw(ctx context.Context, key, val string) error {
	valType := store.ValString
	for _, d := range Defaults {
		if d.Key == key {
			valType = d.ValType
			break
		}
	}
	return a.store.SetConfiguration(ctx, store.Configuration{Key: key, Val: val, ValType: valType})
}
