package schemas

import (
	"encoding/json"
	"testing"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name       string
		schemaName string
		wantErr    bool
	}{
		{name: "compile config schema", schemaName: Config},
		{name: "compile non-existent schema", schemaName: "nonexistent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := Compile(tt.schemaName)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if schema == nil {
				t.Error("expected schema, got nil")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "minimal", doc: `{"entry": "app.js"}`},
		{
			name: "full",
			doc: `{
				"root": ".",
				"encoding": "utf-8",
				"provided": ["ext/ext-dev.js"],
				"entry": ["app.js"],
				"resolve": {"path": {"Ext": "ext/src", "myapp": ["app", "lib"]}, "alias": {"Ext.Layer": "Ext.dom.Layer"}},
				"excludeClasses": ["Ext.ux.*"],
				"skipParse": "app/ux/SkipMe.js",
				"extraDependencies": {"requires": {"MyClass": "MyDependency"}},
				"optimizeSource": true,
				"cache": ".extdeps/cache.db"
			}`,
		},
		{name: "unknown property", doc: `{"entries": ["app.js"]}`, wantErr: true},
		{name: "wrong list type", doc: `{"entry": 3}`, wantErr: true},
		{name: "bad alias value", doc: `{"resolve": {"alias": {"A": ["B"]}}}`, wantErr: true},
		{name: "bad namespace", doc: `{"namespace": "my.ns"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Config, []byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestList(t *testing.T) {
	docs, err := List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(docs[Config], &decoded); err != nil {
		t.Fatalf("config schema is not JSON: %v", err)
	}
	if decoded["type"] != "object" {
		t.Errorf("config schema type = %v", decoded["type"])
	}
}
