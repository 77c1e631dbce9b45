package preset

import (
	_ "embed"
)

//go:embed builtin.toml
var builtinTOML []byte

// Builtin returns the bank compiled into the binary
func Builtin() *Bank {
	b, err := Parse(builtinTOML)
	if err != nil {
		panic("preset: builtin bank: " + err.Error())
	}
	return b
}

// BuiltinSource returns the embedded bank file contents
func BuiltinSource() []byte {
	return append([]byte(nil), builtinTOML...)
}
