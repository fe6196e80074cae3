package vm

import (
	"sort"
	"strconv"

	"github.com/zurustar/nsbi/pkg/savefile"
)

// SaveState captures every variable and array in save-file form.
// A variable's alias is the first alias pointing at its name, and its
// array reference is set when an array of the same name exists.
func (in *Interpreter) SaveState() *SaveData {
	reverse := make(map[string]string)
	for _, alias := range in.objects.Aliases() {
		path, _ := in.objects.Alias(alias)
		if _, ok := reverse[path]; !ok {
			reverse[path] = alias
		}
	}

	data := &SaveData{}
	for _, name := range in.VariableNames() {
		v := in.variables[name]
		rec := savefile.Variable{
			Name:     name,
			Alias:    reverse[name],
			Relative: v.Relative,
		}
		switch v.Kind() {
		case KindInt:
			rec.Type, rec.Int = savefile.TypeInt, v.i
		case KindFloat:
			rec.Type, rec.String = savefile.TypeFloat, v.ToString()
		case KindString:
			rec.Type, rec.String = savefile.TypeString, v.s
		case KindBool:
			rec.Type = savefile.TypeBool
			if v.b {
				rec.Int = 1
			}
		default:
			rec.Type = savefile.TypeNull
		}
		if _, ok := in.arrays[name]; ok {
			rec.ArrayRef = name
		}
		data.Variables = append(data.Variables, rec)
	}

	names := make([]string, 0, len(in.arrays))
	for name := range in.arrays {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a := in.arrays[name]
		rec := savefile.Array{Name: name}
		for _, m := range a.Members {
			rec.Elements = append(rec.Elements, m.Value.ToString())
		}
		data.Arrays = append(data.Arrays, rec)
	}
	return data
}

// RestoreState replaces every variable and array with the saved ones.
// Arrays come back as flat lists of strings: member keys and nested
// members are not part of the save layout.
func (in *Interpreter) RestoreState(data *SaveData) {
	in.pending = nil
	in.variables = make(map[string]*Value, len(data.Variables))
	for _, rec := range data.Variables {
		v := &Value{}
		switch rec.Type {
		case savefile.TypeInt:
			v.SetInt(rec.Int)
		case savefile.TypeFloat:
			f, _ := strconv.ParseFloat(rec.String, 32)
			v.SetFloat(float32(f))
		case savefile.TypeString:
			v.SetString(rec.String)
		case savefile.TypeBool:
			v.SetBool(rec.Int != 0)
		}
		v.Relative = rec.Relative
		in.variables[rec.Name] = v
		if rec.Alias != "" {
			in.objects.SetAlias(rec.Alias, rec.Name)
		}
	}

	for _, a := range in.arrays {
		a.Destroy()
	}
	in.arrays = make(map[string]*Array, len(data.Arrays))
	for _, rec := range data.Arrays {
		a := NewArray()
		for _, e := range rec.Elements {
			a.Append("", NewArrayFrom(MakeString(e)))
		}
		in.arrays[rec.Name] = a
	}
}
