package vm

import "strings"

// ConstantGroup classifies a symbolic constant.
type ConstantGroup uint8

const (
	GroupBoolean ConstantGroup = iota
	GroupPosition
	GroupTempo
	GroupRequest
	GroupSound
)

// Constant is a symbolic name scripts may pass instead of a number.
type Constant struct {
	Name  string
	Group ConstantGroup
	Value int32
}

// Tempo values select the easing curve of a timed motion.
const (
	TempoLinear int32 = iota
	TempoAxl
	TempoDxl
	TempoAxlDxl
)

// Request values accepted by the Request instruction.
const (
	RequestStart int32 = iota
	RequestStop
	RequestPlay
	RequestPause
	RequestResume
	RequestLock
	RequestUnLock
)

// Position values are resolved against the screen and object size.
const (
	PositionCenter int32 = iota
	PositionMiddle
	PositionInLeft
	PositionInRight
	PositionInTop
	PositionInBottom
	PositionOnLeft
	PositionOnRight
	PositionOnTop
	PositionOnBottom
	PositionOutLeft
	PositionOutRight
	PositionOutTop
	PositionOutBottom
)

// Sound kinds for CreateSound.
const (
	SoundBGM int32 = iota
	SoundSE
	SoundVoice
)

var constants = buildConstants([]Constant{
	{"true", GroupBoolean, 1},
	{"false", GroupBoolean, 0},

	{"Center", GroupPosition, PositionCenter},
	{"Middle", GroupPosition, PositionMiddle},
	{"InLeft", GroupPosition, PositionInLeft},
	{"InRight", GroupPosition, PositionInRight},
	{"InTop", GroupPosition, PositionInTop},
	{"InBottom", GroupPosition, PositionInBottom},
	{"OnLeft", GroupPosition, PositionOnLeft},
	{"OnRight", GroupPosition, PositionOnRight},
	{"OnTop", GroupPosition, PositionOnTop},
	{"OnBottom", GroupPosition, PositionOnBottom},
	{"OutLeft", GroupPosition, PositionOutLeft},
	{"OutRight", GroupPosition, PositionOutRight},
	{"OutTop", GroupPosition, PositionOutTop},
	{"OutBottom", GroupPosition, PositionOutBottom},

	{"Linear", GroupTempo, TempoLinear},
	{"Axl", GroupTempo, TempoAxl},
	{"Dxl", GroupTempo, TempoDxl},
	{"AxlDxl", GroupTempo, TempoAxlDxl},

	{"Start", GroupRequest, RequestStart},
	{"Stop", GroupRequest, RequestStop},
	{"Play", GroupRequest, RequestPlay},
	{"Pause", GroupRequest, RequestPause},
	{"Resume", GroupRequest, RequestResume},
	{"Lock", GroupRequest, RequestLock},
	{"UnLock", GroupRequest, RequestUnLock},

	{"BGM", GroupSound, SoundBGM},
	{"SE", GroupSound, SoundSE},
	{"Voice", GroupSound, SoundVoice},
})

func buildConstants(list []Constant) map[string]Constant {
	m := make(map[string]Constant, len(list))
	for _, c := range list {
		m[strings.ToLower(c.Name)] = c
	}
	return m
}

// LookupConstant finds a constant by name, ignoring case.
func LookupConstant(name string) (Constant, bool) {
	c, ok := constants[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// lookupGroup finds a constant restricted to one group.
func lookupGroup(name string, group ConstantGroup) (int32, bool) {
	c, ok := LookupConstant(name)
	if !ok || c.Group != group {
		return 0, false
	}
	return c.Value, true
}

func lookupBool(name string) (bool, bool) {
	v, ok := lookupGroup(name, GroupBoolean)
	return v != 0, ok
}
