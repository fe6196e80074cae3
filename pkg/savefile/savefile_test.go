package savefile

import (
	"bytes"
	"errors"
	"os"
	"reflect"
	"testing"
)

func sampleFile() *File {
	return &File{
		Variables: []Variable{
			{Name: "$name", Type: TypeString, String: "太郎"},
			{Name: "$x", Alias: "pos", Type: TypeInt, Int: -42, Relative: true},
			{Name: "$flag", Type: TypeBool, Int: 1, ArrayRef: "$flag"},
		},
		Arrays: []Array{
			{Name: "$flag", Elements: []string{"1", "", "選択肢"}},
			{Name: "$empty"},
		},
	}
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		key  []byte
	}{
		{"鍵あり", []byte("secret")},
		{"鍵なし", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, sampleFile(), tt.key); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := Decode(&buf, tt.key)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !reflect.DeepEqual(got, sampleFile()) {
				t.Errorf("got %+v, want %+v", got, sampleFile())
			}
		})
	}
}

func TestEncode_BodyIsEncrypted(t *testing.T) {
	var plain, secret bytes.Buffer
	Encode(&plain, sampleFile(), nil)
	Encode(&secret, sampleFile(), []byte("k"))

	if !bytes.Equal(plain.Bytes()[:6], secret.Bytes()[:6]) {
		t.Error("header must not be encrypted")
	}
	if bytes.Equal(plain.Bytes()[6:], secret.Bytes()[6:]) {
		t.Error("body was not encrypted")
	}
}

func TestDecode_Errors(t *testing.T) {
	var good bytes.Buffer
	Encode(&good, sampleFile(), []byte("k"))

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"空", nil, ErrBadMagic},
		{"マジック不一致", []byte("RIFF\x01\x00"), ErrBadMagic},
		{"切り詰め", good.Bytes()[:good.Len()-2], ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data), []byte("k"))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecode_WrongKey(t *testing.T) {
	var buf bytes.Buffer
	Encode(&buf, sampleFile(), []byte("right"))
	got, err := Decode(&buf, []byte("wrong"))
	if err == nil && reflect.DeepEqual(got, sampleFile()) {
		t.Error("wrong key must not reproduce the original")
	}
}

func TestCrypt_Involution(t *testing.T) {
	data := []byte("hello, save data")
	key := []byte{0x13, 0x37}
	if !bytes.Equal(Crypt(Crypt(data, key), key), data) {
		t.Error("Crypt is not its own inverse")
	}
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir+"/saves", []byte("k"))

	if err := s.Save(3, sampleFile()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := s.Load(3)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, sampleFile()) {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if _, err := s.Load(4); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}
