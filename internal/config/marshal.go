package config

import (
	"reflect"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Marshal renders cfg as YAML that LoadConfig reads back. Durations are
// written in time.ParseDuration form.
func Marshal(cfg *Config) ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, err
	}
	humanizeDurations(&doc, reflect.ValueOf(cfg).Elem())
	return yaml.Marshal(&doc)
}

func humanizeDurations(n *yaml.Node, v reflect.Value) {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode || v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		for j := 0; j < t.NumField(); j++ {
			name, _, _ := strings.Cut(t.Field(j).Tag.Get("yaml"), ",")
			if name != key.Value {
				continue
			}
			f := v.Field(j)
			if d, ok := f.Interface().(time.Duration); ok {
				val.Kind = yaml.ScalarNode
				val.Tag = "!!str"
				val.Value = d.String()
				val.Style = 0
				continue
			}
			humanizeDurations(val, f)
		}
	}
}
