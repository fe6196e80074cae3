package vm

import (
	"fmt"
	"strings"

	"github.com/zurustar/nsbi/pkg/script"
)

func opRandom(in *Interpreter, _ *Thread, _ *script.Line) error {
	n, err := in.popInt()
	if n <= 0 {
		in.Push(MakeInt(0))
		return err
	}
	in.Push(MakeInt(in.random.Int31n(n)))
	return err
}

// opFormat formats its remaining operands with the first one. Each verb
// takes the argument in the form it names: integers for d, x, X, o, c and
// for a * width or precision, floats for f, e, g and strings otherwise.
func opFormat(in *Interpreter, _ *Thread, _ *script.Line) error {
	format := in.popString()
	var args []any
	verbs := formatVerbs(format)
	for i := 0; in.stack.Remaining() > 0; i++ {
		v := in.Pop()
		verb := byte('v')
		if i < len(verbs) {
			verb = verbs[i]
		}
		switch verb {
		case '*':
			n, _ := v.ToInt()
			args = append(args, int(n))
		case 'd', 'x', 'X', 'o', 'c':
			n, _ := v.ToInt()
			args = append(args, n)
		case 'f', 'e', 'g':
			f, _ := v.ToFloat()
			args = append(args, f)
		default:
			args = append(args, v.ToString())
		}
		Destroy(v)
	}
	in.Push(MakeString(fmt.Sprintf(format, args...)))
	return nil
}

// formatVerbs returns, in argument order, the conversion letter of every
// verb in format. A * width or precision takes an argument of its own and
// is reported as '*'.
func formatVerbs(format string) []byte {
	var verbs []byte
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		for i < len(format) && strings.IndexByte("+-# 0123456789.*", format[i]) >= 0 {
			if format[i] == '*' {
				verbs = append(verbs, '*')
			}
			i++
		}
		if i < len(format) && format[i] != '%' {
			verbs = append(verbs, format[i])
		}
	}
	return verbs
}

func opCount(in *Interpreter, _ *Thread, _ *script.Line) error {
	handle := in.popString()
	in.Push(MakeInt(int32(in.objects.Count(handle))))
	return nil
}

func opSaveData(in *Interpreter, _ *Thread, _ *script.Line) error {
	slot, err := in.popInt()
	if err != nil {
		in.Push(MakeBool(false))
		return err
	}
	if in.saves == nil {
		in.Push(MakeBool(false))
		return NewResourceError(fmt.Sprintf("save slot %d", slot), ErrUnavailable)
	}
	if err := in.saves.Save(int(slot), in.SaveState()); err != nil {
		in.Push(MakeBool(false))
		return NewResourceError(fmt.Sprintf("save slot %d", slot), err)
	}
	in.log.Info("Saved", "slot", slot)
	in.Push(MakeBool(true))
	return nil
}

func opLoadData(in *Interpreter, _ *Thread, _ *script.Line) error {
	slot, err := in.popInt()
	if err != nil {
		in.Push(MakeBool(false))
		return err
	}
	if in.saves == nil {
		in.Push(MakeBool(false))
		return NewResourceError(fmt.Sprintf("save slot %d", slot), ErrUnavailable)
	}
	data, err := in.saves.Load(int(slot))
	if err != nil {
		in.Push(MakeBool(false))
		return NewResourceError(fmt.Sprintf("save slot %d", slot), err)
	}
	in.RestoreState(data)
	in.log.Info("Loaded", "slot", slot)
	in.Push(MakeBool(true))
	return nil
}
