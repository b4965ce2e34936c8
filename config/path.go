/*
   Copyright The Debrepbuild Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package config

import (
	"errors"
	"reflect"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidKey is returned when a dotted key does not resolve to a
// field of the spec.
var ErrInvalidKey = errors.New("config key not found")

// Get resolves a dotted key ("archive", "direct.atom.version", ...)
// against the spec. Collections are addressed by the `name` field of
// their elements. A key that stops at a non-leaf field yields the TOML
// rendering of that subtree.
//
// Key resolution is a single generic walk over the struct's toml tags,
// so every collection (direct, source, repos) resolves through the same
// code path.
func (c *Config) Get(key string) (string, error) {
	v, err := c.resolve(key)
	if err != nil {
		return "", err
	}
	if v.Kind() == reflect.String {
		return v.String(), nil
	}
	rendered, err := toml.Marshal(v.Interface())
	if err != nil {
		return "", err
	}
	return string(rendered), nil
}

// Set updates the string field addressed by a dotted key. Only leaf
// fields may be assigned.
func (c *Config) Set(key, value string) error {
	v, err := c.resolve(key)
	if err != nil {
		return err
	}
	if v.Kind() != reflect.String || !v.CanSet() {
		return ErrInvalidKey
	}
	v.SetString(value)
	return nil
}

func (c *Config) resolve(key string) (reflect.Value, error) {
	v := reflect.ValueOf(c).Elem()
	for _, segment := range strings.Split(key, ".") {
		if segment == "" {
			return reflect.Value{}, ErrInvalidKey
		}
		switch v.Kind() {
		case reflect.Struct:
			field, ok := fieldByTag(v, segment)
			if !ok {
				return reflect.Value{}, ErrInvalidKey
			}
			v = field
		case reflect.Slice:
			element, ok := elementByName(v, segment)
			if !ok {
				return reflect.Value{}, ErrInvalidKey
			}
			v = element
		default:
			return reflect.Value{}, ErrInvalidKey
		}
	}
	return v, nil
}

// fieldByTag finds the struct field whose toml tag matches name.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
		if tag == "" {
			tag = strings.ToLower(t.Field(i).Name)
		}
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// elementByName finds the slice element whose `name` field equals name.
func elementByName(v reflect.Value, name string) (reflect.Value, bool) {
	for i := 0; i < v.Len(); i++ {
		element := v.Index(i)
		if element.Kind() != reflect.Struct {
			return reflect.Value{}, false
		}
		field, ok := fieldByTag(element, "name")
		if !ok || field.Kind() != reflect.String {
			return reflect.Value{}, false
		}
		if field.String() == name {
			return element, true
		}
	}
	return reflect.Value{}, false
}
