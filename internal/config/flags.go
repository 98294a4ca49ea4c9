package config

import (
	"reflect"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

// flagDef describes one command-line flag derived from a Config field
type flagDef struct {
	path  string // koanf path, e.g. "dataverse.projects.table"
	name  string // flag name, e.g. "dataverse-projects-table"
	usage string
	kind  reflect.Kind
	// elem is the element kind of slice fields
	elem reflect.Kind
	// def is the value in Default(), shown in --help
	def reflect.Value
}

var flagDefs = sync.OnceValue(func() []flagDef {
	var defs []flagDef
	def := Default()
	collectFlags(reflect.ValueOf(def), "", &defs)
	return defs
})

// collectFlags walks a config struct value and records a flag for every
// scalar and string list field reachable through koanf tags. Lists of
// structs (fixtures) and maps only come from files.
func collectFlags(v reflect.Value, parent string, defs *[]flagDef) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v = reflect.New(v.Type().Elem())
		}
		v = v.Elem()
	}
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("koanf")
		if !field.IsExported() || tag == "" || tag == "-" {
			continue
		}

		path := tag
		if parent != "" {
			path = parent + "." + tag
		}
		fv := v.Field(i)

		switch k := field.Type.Kind(); {
		case k == reflect.Struct:
			collectFlags(fv, path, defs)
		case k == reflect.Pointer && field.Type.Elem().Kind() == reflect.Struct:
			collectFlags(fv, path, defs)
		case k == reflect.Slice && field.Type.Elem().Kind() == reflect.String:
			*defs = append(*defs, flagDef{
				path:  path,
				name:  flagName(path),
				usage: field.Tag.Get("usage"),
				kind:  k,
				elem:  reflect.String,
				def:   fv,
			})
		case isScalarKind(k):
			*defs = append(*defs, flagDef{
				path:  path,
				name:  flagName(path),
				usage: field.Tag.Get("usage"),
				kind:  k,
				def:   fv,
			})
		}
	}
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// flagName turns a koanf path into a flag name:
// "dataverse.product_access.allowed_value" -> "dataverse-product-access-allowed-value"
func flagName(path string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(path)
}

// RegisterFlags adds a flag for every configurable setting to flagSet.
// Defaults are shown in help output only; the loader applies a flag just
// when it was set on the command line. Flags already present are left alone.
func RegisterFlags(flagSet *pflag.FlagSet) {
	for _, fd := range flagDefs() {
		if flagSet.Lookup(fd.name) != nil {
			continue
		}

		switch fd.kind {
		case reflect.String:
			flagSet.String(fd.name, fd.def.String(), fd.usage)
		case reflect.Bool:
			flagSet.Bool(fd.name, fd.def.Bool(), fd.usage)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			flagSet.Int64(fd.name, fd.def.Int(), fd.usage)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			flagSet.Uint64(fd.name, fd.def.Uint(), fd.usage)
		case reflect.Float32, reflect.Float64:
			flagSet.Float64(fd.name, fd.def.Float(), fd.usage)
		case reflect.Slice:
			var def []string
			if !fd.def.IsNil() {
				def = fd.def.Interface().([]string)
			}
			flagSet.StringSlice(fd.name, def, fd.usage)
		}
	}
}

// GetFlagMapping returns flag name -> koanf path for every flag
// RegisterFlags creates
func GetFlagMapping() map[string]string {
	defs := flagDefs()
	mapping := make(map[string]string, len(defs))
	for _, fd := range defs {
		mapping[fd.name] = fd.path
	}
	return mapping
}
