// CPU-bound compute commands (spec §2/§4.2): primality, factorization, π
// digits, a Mandelbrot iteration map, and a matrix-multiply hash. Every
// operation here polls ctx at a coarse inner boundary and returns
// resp.Timeout() on first expiry, per the deadline/cancellation contract
// the dispatcher establishes for every Task.
package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"math/cmplx"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"p01-compute-server/internal/resp"
)

// IsPrimeJSONCtx answers /isprime?n=NUM[&method=division|miller-rabin].
func IsPrimeJSONCtx(ctx context.Context, params map[string]string) resp.Result {
	n64, err := strconv.ParseInt(params["n"], 10, 64)
	if err != nil || n64 < 0 {
		return resp.BadReq("n", "n must be integer >= 0")
	}

	method := params["method"]
	if method == "" {
		method = "division"
	}
	if method != "division" && method != "miller-rabin" {
		return resp.BadReq("method", "use method=division|miller-rabin")
	}

	n := n64
	start := time.Now()

	type outT struct {
		N       int64  `json:"n"`
		IsPrime bool   `json:"is_prime"`
		Method  string `json:"method"`
		Elapsed int64  `json:"elapsed_ms"`
	}
	out := outT{N: n, IsPrime: false, Method: method}

	switch method {
	case "division":
		switch {
		case n < 2:
		case n == 2 || n == 3:
			out.IsPrime = true
		default:
			if n%2 != 0 {
				prime := true
				limit := int64(math.Sqrt(float64(n)))
				for d := int64(3); d <= limit; d += 2 {
					if (d>>1)&1023 == 0 {
						select {
						case <-ctx.Done():
							return resp.Timeout()
						default:
						}
					}
					if n%d == 0 {
						prime = false
						break
					}
				}
				out.IsPrime = prime
			}
		}
	case "miller-rabin":
		out.IsPrime = mrIsPrime64Ctx(ctx, uint64(n))
		if ctx.Err() != nil {
			return resp.Timeout()
		}
	}

	out.Elapsed = time.Since(start).Milliseconds()
	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}

// mrIsPrime64Ctx is a deterministic Miller-Rabin test, correct for every
// uint64 under the fixed witness set used here.
func mrIsPrime64Ctx(ctx context.Context, n uint64) bool {
	if n < 2 {
		return false
	}
	small := [...]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}
	for _, p := range small {
		if n == p {
			return true
		}
		if n%p == 0 && n != p {
			return false
		}
	}

	r := 0
	d := n - 1
	for d&1 == 0 {
		d >>= 1
		r++
	}

	bases := [...]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}
	nBI := new(big.Int).SetUint64(n)
	dBI := new(big.Int).SetUint64(d)

	for i, a := range bases {
		if i&1 == 0 {
			select {
			case <-ctx.Done():
				return false
			default:
			}
		}
		if a%n == 0 {
			continue
		}
		x := new(big.Int).Exp(new(big.Int).SetUint64(a), dBI, nBI)
		if x.Sign() == 0 || x.Cmp(big.NewInt(1)) == 0 || x.Cmp(new(big.Int).Sub(nBI, big.NewInt(1))) == 0 {
			continue
		}
		composite := true
		for j := 1; j < r; j++ {
			select {
			case <-ctx.Done():
				return false
			default:
			}
			x.Mul(x, x)
			x.Mod(x, nBI)
			if x.Cmp(new(big.Int).Sub(nBI, big.NewInt(1))) == 0 {
				composite = false
				break
			}
		}
		if composite {
			return false
		}
	}
	return true
}

// FactorJSONCtx answers /factor?n=NUM with its prime factorization by
// trial division.
func FactorJSONCtx(ctx context.Context, params map[string]string) resp.Result {
	n64, err := strconv.ParseInt(params["n"], 10, 64)
	if err != nil || n64 < 2 {
		return resp.BadReq("n", "n must be integer >= 2")
	}
	n := n64
	start := time.Now()

	var facts [][2]int64

	if n%2 == 0 {
		c := int64(0)
		for n%2 == 0 {
			n /= 2
			c++
		}
		facts = append(facts, [2]int64{2, c})
	}

	for d := int64(3); d <= n/d; d += 2 {
		if (d>>1)&1023 == 0 {
			select {
			case <-ctx.Done():
				return resp.Timeout()
			default:
			}
		}
		if n%d == 0 {
			c := int64(0)
			for n%d == 0 {
				n /= d
				c++
				if c&1023 == 0 {
					select {
					case <-ctx.Done():
						return resp.Timeout()
					default:
					}
				}
			}
			facts = append(facts, [2]int64{d, c})
		}
	}
	if n > 1 {
		facts = append(facts, [2]int64{n, 1})
	}

	type outT struct {
		N         int64      `json:"n"`
		Factors   [][2]int64 `json:"factors"`
		ElapsedMS int64      `json:"elapsed_ms"`
	}
	out := outT{N: n64, Factors: facts, ElapsedMS: time.Since(start).Milliseconds()}
	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}

const maxPiDigits = 1000

// PiJSONCtx answers /pi?digits=D[&method=spigot|chudnovsky]. digits is
// rejected with 400 outside [1,maxPiDigits] rather than silently clamped.
func PiJSONCtx(ctx context.Context, params map[string]string) resp.Result {
	d, err := strconv.Atoi(params["digits"])
	if err != nil || d < 1 || d > maxPiDigits {
		return resp.BadReq("digits", fmt.Sprintf("digits must be integer in [1,%d]", maxPiDigits))
	}

	method := params["method"]
	if method == "" {
		method = "chudnovsky"
	}
	if method != "spigot" && method != "chudnovsky" {
		return resp.BadReq("method", "use method=spigot|chudnovsky")
	}

	start := time.Now()
	var s string
	var iters int
	var truncated bool

	switch method {
	case "spigot":
		s, iters, truncated = piSpigotCtx(ctx, d)
	case "chudnovsky":
		s, iters, truncated = piChudnovskyCtx(ctx, d)
	}
	if truncated && ctx.Err() != nil {
		return resp.Timeout()
	}

	type outT struct {
		Digits     int    `json:"digits"`
		Method     string `json:"method"`
		Iterations int    `json:"iterations"`
		Truncated  bool   `json:"truncated"`
		Pi         string `json:"pi"`
		Elapsed    int64  `json:"elapsed_ms"`
	}
	out := outT{Digits: d, Method: method, Iterations: iters, Truncated: truncated, Pi: s, Elapsed: time.Since(start).Milliseconds()}
	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}

// piSpigotCtx is the Rabinowitz-Wagon spigot algorithm, base 10. It returns
// "3." followed by exactly n unrounded decimals, the internal iteration
// count, and whether ctx expired before completion.
func piSpigotCtx(ctx context.Context, n int) (string, int, bool) {
	if n <= 0 {
		return "3", 0, false
	}

	size := (10*n)/3 + 1
	a := make([]int, size)
	for i := range a {
		a[i] = 2
	}

	const (
		stateDropInt = iota
		stateFirstPred
		stateNormal
	)
	state := stateDropInt

	nines := 0
	predigit := 0
	iters := 0

	out := make([]byte, 0, n+2)
	out = append(out, '3', '.')

	for digits := 0; digits < n; {
		if (digits & 63) == 0 {
			select {
			case <-ctx.Done():
				if state == stateNormal {
					out = append(out, byte(predigit)+'0')
					for ; nines > 0 && len(out) < 2+n; nines-- {
						out = append(out, '9')
					}
				}
				if len(out) > 2+n {
					out = out[:2+n]
				}
				return string(out), iters, true
			default:
			}
		}

		carry := 0
		for i := size - 1; i > 0; i-- {
			x := a[i]*10 + carry*(i+1)
			den := 2*i + 1
			a[i] = x % den
			carry = x / den
			iters++
		}
		x0 := a[0]*10 + carry
		a[0] = x0 % 10
		q := x0 / 10

		switch state {
		case stateDropInt:
			state = stateFirstPred
			continue
		case stateFirstPred:
			predigit = q
			state = stateNormal
			continue
		case stateNormal:
			switch {
			case q == 9:
				nines++
			case q == 10:
				out = append(out, byte(predigit+1)+'0')
				for ; nines > 0; nines-- {
					out = append(out, '0')
				}
				predigit = 0
				digits++
			default:
				out = append(out, byte(predigit)+'0')
				for ; nines > 0; nines-- {
					out = append(out, '9')
				}
				predigit = q
				digits++
			}
		}
	}

	if len(out) < 2+n {
		out = append(out, byte(predigit)+'0')
	}
	if len(out) > 2+n {
		out = out[:2+n]
	}
	return string(out), iters, false
}

// piChudnovskyCtx evaluates the Chudnovsky series with big.Float, cutting
// off once a term falls below 10^-d.
func piChudnovskyCtx(ctx context.Context, d int) (string, int, bool) {
	bits := uint(float64(d+5) * 3.32193)
	one := new(big.Float).SetPrec(bits).SetInt64(1)

	A := big.NewFloat(13591409).SetPrec(bits)
	B := big.NewFloat(545140134).SetPrec(bits)

	c3Int := new(big.Int).Exp(big.NewInt(640320), big.NewInt(3), nil)
	C3 := new(big.Float).SetPrec(bits).SetInt(c3Int)

	sum := new(big.Float).SetPrec(bits).SetFloat64(0.0)
	t := new(big.Float).SetPrec(bits).SetFloat64(1.0)
	k := 0
	sign := 1.0

	pow10 := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d)), nil)
	tenPow := new(big.Float).SetPrec(bits).SetInt(pow10)
	threshold := new(big.Float).SetPrec(bits).Quo(one, tenPow)

	truncated := false
	for {
		if (k & 1023) == 0 {
			select {
			case <-ctx.Done():
				truncated = true
			default:
			}
		}
		if truncated {
			break
		}

		Ak := new(big.Float).SetPrec(bits).Mul(B, new(big.Float).SetPrec(bits).SetFloat64(float64(k)))
		Ak.Add(Ak, A)
		term := new(big.Float).SetPrec(bits).Mul(t, Ak)
		if sign < 0 {
			term.Neg(term)
		}
		sum.Add(sum, term)

		absTerm := new(big.Float).Abs(term)
		if absTerm.Cmp(threshold) < 0 {
			break
		}

		k++
		sign *= -1

		num := new(big.Float).SetPrec(bits).SetFloat64(float64(8 * (6*k - 5)))
		num.Mul(num, new(big.Float).SetPrec(bits).SetFloat64(float64(6*k-3)))
		num.Mul(num, new(big.Float).SetPrec(bits).SetFloat64(float64(6*k-1)))

		den := new(big.Float).SetPrec(bits).SetFloat64(float64(k * k * k))
		den.Mul(den, C3)

		t.Mul(t, num)
		t.Quo(t, den)
	}

	c3Sqrt := new(big.Float).SetPrec(bits).Sqrt(C3)
	den := new(big.Float).SetPrec(bits).Mul(new(big.Float).SetPrec(bits).SetFloat64(12.0), sum)
	pi := new(big.Float).SetPrec(bits).Quo(c3Sqrt, den)

	txt := pi.Text('f', d+3)
	if idx := strings.IndexByte(txt, '.'); idx >= 0 {
		want := idx + 1 + d
		if want < len(txt) {
			txt = txt[:want]
		} else if want > len(txt) {
			truncated = true
		}
	}
	return txt, k + 1, truncated
}

const maxMandelbrotDim = 1000

// MandelbrotJSONCtx answers /mandelbrot?width=W&height=H&max_iter=I with
// an [h][w] escape-iteration map.
func MandelbrotJSONCtx(ctx context.Context, params map[string]string) resp.Result {
	w, errW := strconv.Atoi(params["width"])
	h, errH := strconv.Atoi(params["height"])
	it, errI := strconv.Atoi(params["max_iter"])
	if errW != nil || errH != nil || errI != nil {
		return resp.BadReq("params", "width,height,max_iter must be integers")
	}
	if w < 1 || w > maxMandelbrotDim || h < 1 || h > maxMandelbrotDim {
		return resp.BadReq("params", fmt.Sprintf("width,height must be integers in [1,%d]", maxMandelbrotDim))
	}
	if it <= 0 {
		return resp.BadReq("params", "max_iter must be > 0")
	}

	start := time.Now()

	minRe, maxRe := -2.5, 1.0
	minIm, maxIm := -1.0, 1.0

	img := make([][]int, h)
	for y := 0; y < h; y++ {
		if y&63 == 0 {
			select {
			case <-ctx.Done():
				return resp.Timeout()
			default:
			}
		}
		row := make([]int, w)
		ci := minIm + (maxIm-minIm)*float64(y)/float64(h-1)
		for x := 0; x < w; x++ {
			cr := minRe + (maxRe-minRe)*float64(x)/float64(w-1)
			c := complex(cr, ci)
			z := complex(0, 0)
			iter := 0
			for iter = 0; iter < it; iter++ {
				if iter&255 == 0 {
					select {
					case <-ctx.Done():
						return resp.Timeout()
					default:
					}
				}
				z = z*z + c
				if cmplx.Abs(z) > 2.0 {
					break
				}
			}
			row[x] = iter
		}
		img[y] = row
	}

	out := map[string]any{
		"width":      w,
		"height":     h,
		"max_iter":   it,
		"map":        img,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}
	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}

const maxMatrixSize = 600

// MatrixMulHashCtx answers /matrixmul?size=N&seed=S: multiplies two NxN
// matrices filled from a deterministic RNG and returns a hash of the
// result rather than the (potentially huge) matrix itself.
func MatrixMulHashCtx(ctx context.Context, params map[string]string) resp.Result {
	n, err1 := strconv.Atoi(params["size"])
	seed, err2 := strconv.ParseInt(params["seed"], 10, 64)
	if err1 != nil || err2 != nil || n < 1 || n > maxMatrixSize {
		return resp.BadReq("params", fmt.Sprintf("size must be integer in [1,%d] and seed a valid integer", maxMatrixSize))
	}
	start := time.Now()

	rng := rand.New(rand.NewSource(seed))

	A := make([]int64, n*n)
	B := make([]int64, n*n)

	for i := 0; i < n*n; i++ {
		if i&4095 == 0 {
			select {
			case <-ctx.Done():
				return resp.Timeout()
			default:
			}
		}
		A[i] = int64(rng.Intn(7) - 3)
		B[i] = int64(rng.Intn(7) - 3)
	}

	C := make([]int64, n*n)
	for i := 0; i < n; i++ {
		if i&7 == 0 {
			select {
			case <-ctx.Done():
				return resp.Timeout()
			default:
			}
		}
		ik := i * n
		for k := 0; k < n; k++ {
			aik := A[ik+k]
			if aik == 0 {
				continue
			}
			kj := k * n
			for j := 0; j < n; j++ {
				if j&255 == 0 {
					select {
					case <-ctx.Done():
						return resp.Timeout()
					default:
					}
				}
				C[ik+j] += aik * B[kj+j]
			}
		}
	}

	hsh := sha256.New()
	for idx, v := range C {
		if idx&8191 == 0 {
			select {
			case <-ctx.Done():
				return resp.Timeout()
			default:
			}
		}
		_ = binary.Write(hsh, binary.LittleEndian, v)
	}
	sum := hex.EncodeToString(hsh.Sum(nil))

	type outT struct {
		Size    int    `json:"size"`
		Seed    int64  `json:"seed"`
		Hash    string `json:"result_sha256"`
		Elapsed int64  `json:"elapsed_ms"`
	}
	out := outT{Size: n, Seed: seed, Hash: sum, Elapsed: time.Since(start).Milliseconds()}
	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}
