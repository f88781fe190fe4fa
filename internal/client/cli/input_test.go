package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer

	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("  strokes.json \n")), "Strokes file", &out)
	require.NoError(t, err)
	assert.Equal(t, "strokes.json", got)
	assert.Equal(t, "Strokes file\n> ", out.String())

	got, err = GetSimpleText(bufio.NewReader(strings.NewReader("partial")), "p", &out)
	require.NoError(t, err)
	assert.Equal(t, "partial", got)

	_, err = GetSimpleText(bufio.NewReader(strings.NewReader("")), "p", &out)
	assert.Error(t, err)
}

func TestGetCode(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(int) ([]byte, error) { return []byte("482913"), nil }
	var out bytes.Buffer
	code, err := GetCode(&out)
	require.NoError(t, err)
	assert.Equal(t, []byte("482913"), code)
	assert.Contains(t, out.String(), "Enter the code")

	readPassword = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }
	_, err = GetCode(&out)
	assert.Error(t, err)
}

func TestGetFields(t *testing.T) {
	var out bytes.Buffer

	got, err := GetFields(bufio.NewReader(strings.NewReader("phone=+39 333 1234567\nemail = m@example.com\n\n")), "Fields", &out)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"phone": "+39 333 1234567", "email": "m@example.com"}, got)

	got, err = GetFields(bufio.NewReader(strings.NewReader("city=Roma")), "Fields", &out)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"city": "Roma"}, got)

	_, err = GetFields(bufio.NewReader(strings.NewReader("not a field\n")), "Fields", &out)
	assert.Error(t, err)
}
