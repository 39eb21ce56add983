/*
Package gradle patches version metadata in an Android build.gradle file.

Only the two scalar fields that a release touches are understood:

	versionCode 2097740
	versionName "3.2.1"

Everything else in the file is preserved byte for byte.
*/
package gradle

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
)

const (
	fieldVersionCode = "versionCode"
	fieldVersionName = "versionName"
)

var (
	versionCodeRe     = regexp.MustCompile(`(versionCode\s+)(\d+)`)
	versionNameRe     = regexp.MustCompile(`(versionName\s+"\d+?\.\d+?\.)(\d+)"`)
	versionNameFullRe = regexp.MustCompile(`versionName\s+"(\d+?\.\d+?\.\d+)"`)
)

// VersionInfo is the version pair stored in build.gradle.
type VersionInfo struct {
	Code int
	Name string
}

// Semver returns Name as a typed semantic version.
func (v VersionInfo) Semver() (*semver.Version, error) {
	sv, err := semver.StrictNewVersion(v.Name)
	if err != nil {
		return nil, &ParseError{Field: fieldVersionName, Value: v.Name, Reason: err.Error()}
	}
	return sv, nil
}

// IncrementVersionCode bumps the first versionCode in text by one.
func IncrementVersionCode(text string) (string, error) {
	loc := versionCodeRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", &ParseError{Field: fieldVersionCode, Reason: "field not found"}
	}

	raw := text[loc[4]:loc[5]]
	n, err := strconv.Atoi(raw)
	if err != nil {
		return "", &ParseError{Field: fieldVersionCode, Value: raw, Reason: "not a number"}
	}
	if n == 0 {
		return "", &ParseError{Field: fieldVersionCode, Value: raw, Reason: "must be greater than zero"}
	}

	return text[:loc[4]] + strconv.Itoa(n+1) + text[loc[5]:], nil
}

// IncrementVersionName bumps the patch component of the first
// versionName "X.Y.Z" in text. Major and minor are left alone.
func IncrementVersionName(text string) (string, error) {
	loc := versionNameRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", &ParseError{Field: fieldVersionName, Reason: `no "X.Y.Z" value found`}
	}

	raw := text[loc[4]:loc[5]]
	n, err := strconv.Atoi(raw)
	if err != nil {
		return "", &ParseError{Field: fieldVersionName, Value: raw, Reason: "patch is not a number"}
	}

	return text[:loc[4]] + strconv.Itoa(n+1) + text[loc[5]:], nil
}

// ExtractVersionName returns the "X.Y.Z" stored in versionName.
func ExtractVersionName(text string) (string, error) {
	m := versionNameFullRe.FindStringSubmatch(text)
	if m == nil {
		return "", &ParseError{Field: fieldVersionName, Reason: `no "X.Y.Z" value found`}
	}
	return m[1], nil
}

// ExtractVersionCode returns the integer stored in versionCode.
func ExtractVersionCode(text string) (int, error) {
	m := versionCodeRe.FindStringSubmatch(text)
	if m == nil {
		return 0, &ParseError{Field: fieldVersionCode, Reason: "field not found"}
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, &ParseError{Field: fieldVersionCode, Value: m[2], Reason: "not a number"}
	}
	return n, nil
}

// Bump applies both increments to text and returns the patched text along
// with the resulting version.
func Bump(text string) (string, VersionInfo, error) {
	withCode, err := IncrementVersionCode(text)
	if err != nil {
		return "", VersionInfo{}, err
	}
	if err := checkChanged(fieldVersionCode, text, withCode); err != nil {
		return "", VersionInfo{}, err
	}

	out, err := IncrementVersionName(withCode)
	if err != nil {
		return "", VersionInfo{}, err
	}
	if err := checkChanged(fieldVersionName, withCode, out); err != nil {
		return "", VersionInfo{}, err
	}

	name, err := ExtractVersionName(out)
	if err != nil {
		return "", VersionInfo{}, err
	}
	code, err := ExtractVersionCode(out)
	if err != nil {
		return "", VersionInfo{}, err
	}
	return out, VersionInfo{Code: code, Name: name}, nil
}

// checkChanged refuses an edit that left the text as it was. Writing such a
// file back would publish a second release under an existing version.
func checkChanged(field, before, after string) error {
	if before == after {
		return &NoChangeError{Field: field}
	}
	return nil
}

// Patch bumps the version fields of the build.gradle file at path in place.
func Patch(path string) (VersionInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return VersionInfo{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	out, info, err := Bump(string(data))
	if err != nil {
		return VersionInfo{}, fmt.Errorf("%s: %w", path, err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return VersionInfo{}, err
	}
	if err := os.WriteFile(path, []byte(out), stat.Mode().Perm()); err != nil {
		return VersionInfo{}, fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Info("Updated version numbers", "file", path, "code", info.Code, "name", info.Name)
	return info, nil
}
