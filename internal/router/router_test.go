package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRegistersEveryComputeCommand(t *testing.T) {
	reg := Build()
	want := []string{
		"timestamp", "reverse", "toupper", "hash", "random", "fibonacci",
		"createfile", "deletefile",
		"sleep", "spin",
		"isprime", "factor", "pi", "mandelbrot", "matrixmul",
		"wordcount", "grep", "hashfile", "sortfile", "compress",
	}
	for _, route := range want {
		require.Truef(t, reg.Has(route), "expected route %q to be registered", route)
	}
	require.Len(t, reg.Routes(), len(want))
}

func TestBuildDoesNotRegisterInlineRoutes(t *testing.T) {
	reg := Build()
	for _, route := range []string{"status", "metrics", "help", "simulate", "loadtest", "jobs/submit"} {
		require.Falsef(t, reg.Has(route), "route %q should be handled inline by server, not the registry", route)
	}
}
