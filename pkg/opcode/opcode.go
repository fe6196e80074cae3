// Package opcode defines the instruction set of compiled NSB scripts.
// This package is the foundation that both the script decoder and the VM depend on.
// Each line of a compiled script carries one Magic and a list of string parameters.
package opcode

import "fmt"

// Magic is the numeric code identifying a bytecode instruction.
type Magic uint16

// Variadic is the arity sentinel meaning "consult the current line's
// parameter count" instead of a fixed number of stack operands.
const Variadic = -1

// Instruction set. Values are part of the on-disk format and must not be
// renumbered; new instructions are appended.
const (
	// ClearParams marks the end of a statement. The scheduler yields to the
	// next thread when it decodes this instruction.
	ClearParams Magic = 0x0000

	// Literal pushes a temporary value.
	// Params: [type, text] where type is INT, FLOAT, STRING, TRUE, FALSE or NULL.
	Literal Magic = 0x0001

	// Get pushes a named variable.
	// Params: [name]
	Get Magic = 0x0002

	// Set stores the operand into a named variable.
	// Params: [name, op] where op is one of = += -= *= /= %=
	Set Magic = 0x0003

	// Assign copies the second operand into the first (array elements).
	Assign Magic = 0x0004

	// Include declares a script whose functions this script may call.
	// It is a no-op at run time. Params: [path]
	Include Magic = 0x0005

	Add Magic = 0x0010
	Sub Magic = 0x0011
	Mul Magic = 0x0012
	Div Magic = 0x0013
	Mod Magic = 0x0014

	Equal        Magic = 0x0020
	NotEqual     Magic = 0x0021
	Less         Magic = 0x0022
	Greater      Magic = 0x0023
	LessEqual    Magic = 0x0024
	GreaterEqual Magic = 0x0025
	LogicalAnd   Magic = 0x0026
	LogicalOr    Magic = 0x0027
	LogicalNot   Magic = 0x0028
	Negate       Magic = 0x0029

	// Increment and Decrement mutate a named variable in place.
	// Params: [name]
	Increment Magic = 0x002A
	Decrement Magic = 0x002B

	// FunctionBegin binds the call arguments to named variables.
	// Params: [argName...]
	FunctionBegin Magic = 0x0030

	// CallFunction, CallScene and CallChapter push a new call frame.
	// Params: [symbol]
	CallFunction Magic = 0x0031
	CallScene    Magic = 0x0032
	CallChapter  Magic = 0x0033

	Return      Magic = 0x0034
	EndFunction Magic = 0x0035
	EndScene    Magic = 0x0036
	EndChapter  Magic = 0x0037

	// Jump rewrites the program counter of the current frame.
	// Params: [symbol]
	Jump Magic = 0x0038

	// If and While jump to the symbol when the operand is false.
	// Params: [symbol]
	If    Magic = 0x0039
	While Magic = 0x003A

	// BreakBegin pushes a break target. Params: [symbol]
	BreakBegin Magic = 0x003B
	BreakEnd   Magic = 0x003C
	Break      Magic = 0x003D

	// CreateArray builds a global list array.
	// Params: [name, valueText...]; one operand per valueText.
	CreateArray Magic = 0x0040

	// ArrayRead walks keys/indices and pushes the addressed member.
	// Params: [name, keyText...]; one operand per keyText.
	ArrayRead Magic = 0x0041

	// BindKey assigns a key to the member addressed by the leading indices.
	// Params: [name, indexText..., keyText]; the last operand is the key.
	BindKey Magic = 0x0042

	// ArraySize pushes the number of members. Params: [name]
	ArraySize Magic = 0x0043

	CreateProcess Magic = 0x0050
	Request       Magic = 0x0051
	Delete        Magic = 0x0052
	SetAlias      Magic = 0x0053
	Wait          Magic = 0x0054
	WaitKey       Magic = 0x0055
	WaitAction    Magic = 0x0056
	WaitText      Magic = 0x0057
	IsStarving    Magic = 0x0058
	Exit          Magic = 0x0059

	CreateTexture Magic = 0x0060
	CreateColor   Magic = 0x0061
	CreateText    Magic = 0x0062
	CreateSound   Magic = 0x0063
	CreateChoice  Magic = 0x0064
	Move          Magic = 0x0065
	Fade          Magic = 0x0066
	SetVolume     Magic = 0x0067
	SetLoop       Magic = 0x0068
	SetText       Magic = 0x0069
	IsSelected    Magic = 0x006A
	ImageHorizon  Magic = 0x006B
	ImageVertical Magic = 0x006C
	RemainTime    Magic = 0x006D
	DurationTime  Magic = 0x006E

	Random   Magic = 0x0070
	Format   Magic = 0x0071
	Count    Magic = 0x0072
	SaveData Magic = 0x0073
	LoadData Magic = 0x0074

	// TableSize is the size of the dispatcher jump table.
	TableSize = 0x0080
)

// Info describes one instruction.
// For variadic instructions Skip is the number of leading line parameters
// that carry static data rather than describing a stack operand.
type Info struct {
	Name  string
	Arity int
	Skip  int
}

var table = map[Magic]Info{
	ClearParams:   {"ClearParams", 0, 0},
	Literal:       {"Literal", 0, 0},
	Get:           {"Get", 0, 0},
	Set:           {"Set", 1, 0},
	Assign:        {"Assign", 2, 0},
	Include:       {"Include", 0, 0},
	Add:           {"Add", 2, 0},
	Sub:           {"Sub", 2, 0},
	Mul:           {"Mul", 2, 0},
	Div:           {"Div", 2, 0},
	Mod:           {"Mod", 2, 0},
	Equal:         {"Equal", 2, 0},
	NotEqual:      {"NotEqual", 2, 0},
	Less:          {"Less", 2, 0},
	Greater:       {"Greater", 2, 0},
	LessEqual:     {"LessEqual", 2, 0},
	GreaterEqual:  {"GreaterEqual", 2, 0},
	LogicalAnd:    {"LogicalAnd", 2, 0},
	LogicalOr:     {"LogicalOr", 2, 0},
	LogicalNot:    {"LogicalNot", 1, 0},
	Negate:        {"Negate", 1, 0},
	Increment:     {"Increment", 0, 0},
	Decrement:     {"Decrement", 0, 0},
	FunctionBegin: {"FunctionBegin", Variadic, 0},
	CallFunction:  {"CallFunction", 0, 0},
	CallScene:     {"CallScene", 0, 0},
	CallChapter:   {"CallChapter", 0, 0},
	Return:        {"Return", 0, 0},
	EndFunction:   {"EndFunction", 0, 0},
	EndScene:      {"EndScene", 0, 0},
	EndChapter:    {"EndChapter", 0, 0},
	Jump:          {"Jump", 0, 0},
	If:            {"If", 1, 0},
	While:         {"While", 1, 0},
	BreakBegin:    {"BreakBegin", 0, 0},
	BreakEnd:      {"BreakEnd", 0, 0},
	Break:         {"Break", 0, 0},
	CreateArray:   {"CreateArray", Variadic, 1},
	ArrayRead:     {"ArrayRead", Variadic, 1},
	BindKey:       {"BindKey", Variadic, 1},
	ArraySize:     {"ArraySize", 0, 0},
	CreateProcess: {"CreateProcess", 6, 0},
	Request:       {"Request", 2, 0},
	Delete:        {"Delete", 1, 0},
	SetAlias:      {"SetAlias", 2, 0},
	Wait:          {"Wait", 1, 0},
	WaitKey:       {"WaitKey", Variadic, 0},
	WaitAction:    {"WaitAction", Variadic, 0},
	WaitText:      {"WaitText", Variadic, 0},
	IsStarving:    {"IsStarving", 1, 0},
	Exit:          {"Exit", 0, 0},
	CreateTexture: {"CreateTexture", 5, 0},
	CreateColor:   {"CreateColor", 7, 0},
	CreateText:    {"CreateText", 7, 0},
	CreateSound:   {"CreateSound", 3, 0},
	CreateChoice:  {"CreateChoice", 5, 0},
	Move:          {"Move", 6, 0},
	Fade:          {"Fade", 5, 0},
	SetVolume:     {"SetVolume", 4, 0},
	SetLoop:       {"SetLoop", 2, 0},
	SetText:       {"SetText", 2, 0},
	IsSelected:    {"IsSelected", 1, 0},
	ImageHorizon:  {"ImageHorizon", 1, 0},
	ImageVertical: {"ImageVertical", 1, 0},
	RemainTime:    {"RemainTime", 1, 0},
	DurationTime:  {"DurationTime", 1, 0},
	Random:        {"Random", 1, 0},
	Format:        {"Format", Variadic, 0},
	Count:         {"Count", 1, 0},
	SaveData:      {"SaveData", 1, 0},
	LoadData:      {"LoadData", 1, 0},
}

var byName = func() map[string]Magic {
	m := make(map[string]Magic, len(table))
	for magic, info := range table {
		m[info.Name] = magic
	}
	return m
}()

// Lookup returns the description of a magic.
func Lookup(m Magic) (Info, bool) {
	info, ok := table[m]
	return info, ok
}

// Parse resolves a mnemonic to its magic.
func Parse(name string) (Magic, bool) {
	m, ok := byName[name]
	return m, ok
}

// Arity returns the declared arity of a magic, or 0 for unknown magics.
func (m Magic) Arity() int {
	return table[m].Arity
}

// Operands returns the number of stack operands an instruction consumes
// when its line carries nparams parameters.
func (m Magic) Operands(nparams int) int {
	info := table[m]
	if info.Arity != Variadic {
		return info.Arity
	}
	if n := nparams - info.Skip; n > 0 {
		return n
	}
	return 0
}

// String returns the mnemonic, or a hex form for unknown magics.
func (m Magic) String() string {
	if info, ok := table[m]; ok {
		return info.Name
	}
	return fmt.Sprintf("Magic(0x%04X)", uint16(m))
}

// All returns every defined magic.
func All() []Magic {
	out := make([]Magic, 0, len(table))
	for m := range table {
		out = append(out, m)
	}
	return out
}
