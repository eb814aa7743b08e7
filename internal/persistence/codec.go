package persistence

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Codec turns a snapshot into bytes and back. Decode tolerates malformed
// individual records: they are dropped and counted in Snapshot.Skipped. A
// payload whose envelope cannot be parsed is an error.
type Codec interface {
	Name() string
	Encode(snap *Snapshot) ([]byte, error)
	Decode(data []byte) (*Snapshot, error)
}

// CodecByName resolves "json" or "cbor".
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "cbor":
		return CBORCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown snapshot codec %q", name)
	}
}

// JSONCodec writes indented JSON, the format of the state file.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(snap *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(normalize(snap), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func (JSONCodec) Decode(data []byte) (*Snapshot, error) {
	var env struct {
		Items      []json.RawMessage `json:"items"`
		Containers []json.RawMessage `json:"containers"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	snap := &Snapshot{}
	for _, raw := range env.Items {
		var rec ItemRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			snap.Skipped++
			continue
		}
		snap.Items = append(snap.Items, rec)
	}
	for _, raw := range env.Containers {
		var rec ContainerRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			snap.Skipped++
			continue
		}
		snap.Containers = append(snap.Containers, rec)
	}
	return snap, nil
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("persistence: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("persistence: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORCodec writes deterministic CBOR: the same model always produces the
// same bytes.
type CBORCodec struct{}

func (CBORCodec) Name() string { return "cbor" }

func (CBORCodec) Encode(snap *Snapshot) ([]byte, error) {
	data, err := cborEnc.Marshal(normalize(snap))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func (CBORCodec) Decode(data []byte) (*Snapshot, error) {
	var env struct {
		Items      []cbor.RawMessage `cbor:"items"`
		Containers []cbor.RawMessage `cbor:"containers"`
	}
	if err := cborDec.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	snap := &Snapshot{}
	for _, raw := range env.Items {
		var rec ItemRecord
		if err := cborDec.Unmarshal(raw, &rec); err != nil {
			snap.Skipped++
			continue
		}
		snap.Items = append(snap.Items, rec)
	}
	for _, raw := range env.Containers {
		var rec ContainerRecord
		if err := cborDec.Unmarshal(raw, &rec); err != nil {
			snap.Skipped++
			continue
		}
		snap.Containers = append(snap.Containers, rec)
	}
	return snap, nil
}

// normalize encodes empty collections as [] rather than null.
func normalize(snap *Snapshot) *Snapshot {
	if snap == nil {
		snap = &Snapshot{}
	}
	out := *snap
	if out.Items == nil {
		out.Items = []ItemRecord{}
	}
	out.Containers = append([]ContainerRecord{}, snap.Containers...)
	for i := range out.Containers {
		if out.Containers[i].Items == nil {
			out.Containers[i].Items = []string{}
		}
	}
	return &out
}
