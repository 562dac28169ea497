// Package logging provides a small structured-fields builder that feeds
// go-logr/logr loggers (backed by zapr/zap in production, a no-op sink in
// tests) with a consistent vocabulary across every component.
package logging

import "time"

// Fields is a logr-compatible key/value map built up fluently.
type Fields map[string]any

func NewFields() Fields {
	return Fields{}
}

func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

func (f Fields) Operation(name string) Fields {
	f["operation"] = name
	return f
}

func (f Fields) Resource(kind, name string) Fields {
	f["resource_type"] = kind
	if name != "" {
		f["resource_name"] = name
	}
	return f
}

func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

func (f Fields) TenantID(id string) Fields {
	if id != "" {
		f["tenant_id"] = id
	}
	return f
}

func (f Fields) ConnectorKind(kind string) Fields {
	if kind != "" {
		f["connector_kind"] = kind
	}
	return f
}

func (f Fields) Stage(name string) Fields {
	if name != "" {
		f["stage"] = name
	}
	return f
}

// KeysAndValues flattens Fields into logr's variadic key/value form.
func (f Fields) KeysAndValues() []any {
	kv := make([]any, 0, len(f)*2)
	for k, v := range f {
		kv = append(kv, k, v)
	}
	return kv
}
