package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
)

// EnvPrefix prefixes every environment override, e.g. AGENTGUARD_MAX_STEPS.
const EnvPrefix = "AGENTGUARD"

// ApplyEnv overrides fields of f from AGENTGUARD_* environment variables.
// Empty variables are ignored.
func ApplyEnv(f *File) error {
	v := reflect.ValueOf(f).Elem()
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}

		key := EnvPrefix + "_" + tag
		value := os.Getenv(key)
		if value == "" {
			continue
		}

		if err := setField(v.Field(i), value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	return nil
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Pointer:
		if field.Type().Elem().Kind() != reflect.Int {
			return fmt.Errorf("unsupported field type %s", field.Type())
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(&n))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
