// Package router builds the Command Registry (spec §4.2): it is the
// single place that knows every route name and which handler backs it.
// main wires the resulting registry into the dispatcher and server.
package router

import (
	"p01-compute-server/internal/handlers"
	"p01-compute-server/internal/registry"
)

// Build registers every fixed compute command under its route name.
// /simulate, /loadtest, /status, /metrics, /help, /jobs/* and / are
// handled inline by the server package instead — they either need
// access to the dispatcher itself or never touch a worker pool at all.
func Build() *registry.Registry {
	reg := registry.New()

	reg.Register("timestamp", handlers.Timestamp)
	reg.Register("reverse", handlers.Reverse)
	reg.Register("toupper", handlers.ToUpper)
	reg.Register("hash", handlers.Hash)
	reg.Register("random", handlers.Random)
	reg.Register("fibonacci", handlers.Fibonacci)

	reg.Register("createfile", handlers.CreateFile)
	reg.Register("deletefile", handlers.DeleteFile)

	reg.Register("sleep", handlers.SleepTask)
	reg.Register("spin", handlers.SpinTask)

	reg.Register("isprime", handlers.IsPrimeJSONCtx)
	reg.Register("factor", handlers.FactorJSONCtx)
	reg.Register("pi", handlers.PiJSONCtx)
	reg.Register("mandelbrot", handlers.MandelbrotJSONCtx)
	reg.Register("matrixmul", handlers.MatrixMulHashCtx)

	reg.Register("wordcount", handlers.WordCountJSONCtx)
	reg.Register("grep", handlers.GrepJSONCtx)
	reg.Register("hashfile", handlers.HashFileJSONCtx)
	reg.Register("sortfile", handlers.SortFileJSONCtx)
	reg.Register("compress", handlers.CompressJSONCtx)

	return reg
}
