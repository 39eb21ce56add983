/*
Package tmpl provides template processing for apkreleaser file names and URLs.
*/
package tmpl

import (
	"bytes"
	"os"
	"strings"
	"text/template"
	"time"
)

// Context provides template context and rendering
type Context struct {
	data map[string]interface{}
}

// New creates a new template context seeded with data
func New(data map[string]interface{}) *Context {
	ctx := &Context{data: make(map[string]interface{}, len(data)+2)}
	ctx.data["Date"] = time.Now().Format("2006-01-02")
	ctx.data["Env"] = environ()
	for k, v := range data {
		ctx.data[k] = v
	}
	return ctx
}

// Apply applies the template to a string
func (c *Context) Apply(text string) (string, error) {
	t, err := template.New("").Funcs(Funcs()).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, c.data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Set sets a value in the context
func (c *Context) Set(key string, value interface{}) {
	c.data[key] = value
}

// With returns a copy of the context with extra values
func (c *Context) With(kv map[string]interface{}) *Context {
	out := &Context{data: make(map[string]interface{}, len(c.data)+len(kv))}
	for k, v := range c.data {
		out.data[k] = v
	}
	for k, v := range kv {
		out.data[k] = v
	}
	return out
}

// Validate reports whether text parses with the template functions
// available at render time.
func Validate(name, text string) error {
	_, err := template.New(name).Funcs(Funcs()).Parse(text)
	return err
}

// Funcs returns the template function map
func Funcs() template.FuncMap {
	return template.FuncMap{
		"replace":    strings.ReplaceAll,
		"tolower":    strings.ToLower,
		"toupper":    strings.ToUpper,
		"trim":       strings.TrimSpace,
		"trimprefix": strings.TrimPrefix,
		"trimsuffix": strings.TrimSuffix,
		"env":        os.Getenv,
		"default": func(def, val interface{}) interface{} {
			if val == nil || val == "" {
				return def
			}
			return val
		},
	}
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, e := range os.Environ() {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			env[parts[0]] = parts[1]
		}
	}
	return env
}
