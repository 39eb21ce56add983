/*
Package variant defines the fixed set of APK variants and the source edits
each one needs before Gradle runs.
*/
package variant

import (
	"fmt"
	"regexp"
	"strings"
)

// Files touched by variant recipes, relative to the mobile app directory.
const (
	GradleFile      = "android/app/build.gradle"
	VoskFile        = "services/voiceTyping/vosk.js"
	VoskDummyFile   = "services/voiceTyping/vosk.dummy.js"
	PackageManifest = "package.json"
)

// Name identifies a variant.
type Name string

const (
	NameMain  Name = "main"
	Name32Bit Name = "32bit"
	NameVosk  Name = "vosk"
)

// Mutation is a single edit to one file. When CopyFrom is set the file is
// replaced by the content of that file, otherwise the first match of
// Pattern is replaced by Replacement.
type Mutation struct {
	File        string
	Pattern     *regexp.Regexp
	Replacement string
	CopyFrom    string
}

// Variant is one entry of the closed variant set.
type Variant struct {
	Name Name

	// Primary marks the variant that gets the unsuffixed file name and the
	// "latest" alias.
	Primary bool

	Mutations []Mutation
}

// String implements fmt.Stringer.
func (v Variant) String() string {
	return string(v.Name)
}

// Suffix returns the file name suffix for the variant, empty for the
// primary one.
func (v Variant) Suffix() string {
	if v.Primary {
		return ""
	}
	return "-" + string(v.Name)
}

// BuildDir is the Gradle buildDir used for the variant, relative to
// android/app.
func (v Variant) BuildDir() string {
	return "build-" + string(v.Name)
}

var (
	// 32-bit builds keep only the armeabi-v7a and x86 ABIs.
	only32BitABIs = []Mutation{
		{
			File:        GradleFile,
			Pattern:     regexp.MustCompile(`abiFilters "armeabi-v7a", "x86", "arm64-v8a", "x86_64"`),
			Replacement: `abiFilters "armeabi-v7a", "x86"`,
		},
		{
			File:        GradleFile,
			Pattern:     regexp.MustCompile(`include "armeabi-v7a", "x86", "arm64-v8a", "x86_64"`),
			Replacement: `include "armeabi-v7a", "x86"`,
		},
	}

	// Voice typing pulls in a large native module. Variants without it get
	// the stub implementation and lose the dependency declaration.
	withoutVoiceTyping = []Mutation{
		{
			File:     VoskFile,
			CopyFrom: VoskDummyFile,
		},
		{
			File:    PackageManifest,
			Pattern: regexp.MustCompile(`\s+"@joplin/react-native-vosk": ".*",`),
		},
	}
)

var (
	Main = Variant{
		Name:      NameMain,
		Primary:   true,
		Mutations: withoutVoiceTyping,
	}
	Bit32 = Variant{
		Name:      Name32Bit,
		Mutations: concat(only32BitABIs, withoutVoiceTyping),
	}
	Vosk = Variant{
		Name: NameVosk,
	}
)

// All returns every variant in build order.
func All() []Variant {
	return []Variant{Main, Bit32, Vosk}
}

// Lookup returns the variant with the given name.
func Lookup(name string) (Variant, error) {
	for _, v := range All() {
		if string(v.Name) == name {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("unknown variant %q (expected one of %s)", name, strings.Join(Names(), ", "))
}

// Select returns the variants to build. An empty filter selects all of them.
func Select(filter string) ([]Variant, error) {
	if filter == "" {
		return All(), nil
	}
	v, err := Lookup(filter)
	if err != nil {
		return nil, err
	}
	return []Variant{v}, nil
}

// Names lists the variant names in build order.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, v := range all {
		names[i] = string(v.Name)
	}
	return names
}

func concat(groups ...[]Mutation) []Mutation {
	var out []Mutation
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
