package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Generate_Default_Length_And_Alphabet(t *testing.T) {
	req := require.New(t)
	gen := NewCodeGenerator()

	for range 100 {
		code := gen.Generate()
		req.Len(code, defaultCodeLength)
		for _, c := range code {
			req.True(strings.ContainsRune(defaultAlphabet, c), "unexpected character %q", c)
		}
	}
}

func Test_Generate_Custom_Alphabet(t *testing.T) {
	req := require.New(t)
	gen := NewCodeGeneratorWith("XY", 8)

	code := gen.Generate()
	req.Len(code, 8)
	for _, c := range code {
		req.Contains("XY", string(c))
	}
}

func Test_Generate_Falls_Back_On_Bad_Settings(t *testing.T) {
	req := require.New(t)
	gen := NewCodeGeneratorWith("", -1)

	req.Len(gen.Generate(), defaultCodeLength)
}

func Test_NormalizeRoom_Uppercases_And_Trims(t *testing.T) {
	req := require.New(t)

	req.Equal("ABCD", NormalizeRoom(" abcd "))
	req.Equal("WXYZ", NormalizeRoom("WxYz"))
	req.Equal("", NormalizeRoom("   "))
}

func Test_NewEntry_Stamps_Time_And_Identifier(t *testing.T) {
	req := require.New(t)

	before := time.Now().UTC()
	e := NewEntry("abcd", "hello")
	after := time.Now().UTC()

	req.Equal("ABCD", e.Room)
	req.Equal("hello", e.Payload)
	req.NotEqual([16]byte{}, [16]byte(e.ID))
	req.False(e.At.Before(before))
	req.False(e.At.After(after))
}
