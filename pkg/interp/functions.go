package interp

import (
	"math"

	"github.com/getmockd/scriptd/pkg/response"
	"github.com/getmockd/scriptd/pkg/value"
)

// Function is a built-in callable from an echo tag as @name. It takes its
// arguments from the frame and pushes any results back.
type Function func(f *Frame) error

// Builtins returns a fresh copy of the built-in function table.
func Builtins() map[string]Function {
	return map[string]Function{
		"sin":         funcSin,
		"decfmt":      funcDecfmt,
		"dup":         funcDup,
		"swap":        funcSwap,
		"setMimeType": funcSetMimeType,

		"paramGet":  paramGetter((*response.Context).Param),
		"tparamGet": paramGetter((*response.Context).TempParam),
		"pparamGet": paramGetter((*response.Context).PersistentParam),

		"tparamSet": paramSetter((*response.Context).SetTempParam),
		"pparamSet": paramSetter((*response.Context).SetPersistentParam),

		"tparamDel": paramDeleter((*response.Context).DeleteTempParam),
		"pparamDel": paramDeleter((*response.Context).DeletePersistentParam),
	}
}

// funcSin takes its argument in degrees.
func funcSin(f *Frame) error {
	x, err := f.Pop()
	if err != nil {
		return err
	}
	deg, err := x.Number()
	if err != nil {
		return err
	}
	f.Push(value.Float(math.Sin(deg * math.Pi / 180)))
	return nil
}

func funcDecfmt(f *Frame) error {
	pattern, err := f.Pop()
	if err != nil {
		return err
	}
	v, err := f.Pop()
	if err != nil {
		return err
	}
	n, err := v.Number()
	if err != nil {
		return err
	}
	f.Push(value.String(FormatDecimal(n, pattern.String())))
	return nil
}

func funcDup(f *Frame) error {
	top, err := f.Peek()
	if err != nil {
		return err
	}
	f.Push(top)
	return nil
}

func funcSwap(f *Frame) error {
	pair, err := f.PopN(2)
	if err != nil {
		return err
	}
	f.Push(pair[1])
	f.Push(pair[0])
	return nil
}

func funcSetMimeType(f *Frame) error {
	mime, err := f.Pop()
	if err != nil {
		return err
	}
	return f.Response().SetMimeType(mime.String())
}

// paramGetter pops the default then the key and pushes the stored value
// or the default.
func paramGetter(get func(*response.Context, string) (string, bool)) Function {
	return func(f *Frame) error {
		def, err := f.Pop()
		if err != nil {
			return err
		}
		key, err := f.Pop()
		if err != nil {
			return err
		}
		if v, ok := get(f.Response(), key.String()); ok {
			f.Push(value.String(v))
			return nil
		}
		f.Push(def)
		return nil
	}
}

// paramSetter pops the key then the value.
func paramSetter(set func(*response.Context, string, string)) Function {
	return func(f *Frame) error {
		key, err := f.Pop()
		if err != nil {
			return err
		}
		v, err := f.Pop()
		if err != nil {
			return err
		}
		set(f.Response(), key.String(), v.String())
		return nil
	}
}

func paramDeleter(del func(*response.Context, string)) Function {
	return func(f *Frame) error {
		key, err := f.Pop()
		if err != nil {
			return err
		}
		del(f.Response(), key.String())
		return nil
	}
}
