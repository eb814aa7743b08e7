package persistence

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/suite"
)

func strPtr(s string) *string { return &s }

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Items: []ItemRecord{
			{ID: "CI00000001", SenderNam: "alice", RecipNam: "bob", RecipAddr: "Main St", Owner: "carol", State: "waiting", Container: strPtr("HUB1")},
			{ID: "CI00000002", SenderNam: "dave", RecipNam: "erin", RecipAddr: "Elm St", Owner: "frank", State: "accepted"},
		},
		Containers: []ContainerRecord{
			{Cid: "HUB1", Description: "central hub", Type: "Hub", Loc: []float64{10.5, 20.25}, Items: []string{"CI00000001"}},
			{Cid: "TRUCK1", Description: "truck", Type: "Truck", Loc: []float64{0, 0}},
		},
	}
}

type CodecSuite struct {
	suite.Suite
}

func TestCodecSuite(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func (s *CodecSuite) TestRoundTrip() {
	for _, codec := range []Codec{JSONCodec{}, CBORCodec{}} {
		s.Run(codec.Name(), func() {
			data, err := codec.Encode(sampleSnapshot())
			s.Require().NoError(err)

			got, err := codec.Decode(data)
			s.Require().NoError(err)

			want := sampleSnapshot()
			s.Equal(want.Items, got.Items)
			s.Require().Len(got.Containers, len(want.Containers))
			for i, w := range want.Containers {
				g := got.Containers[i]
				s.Equal(w.Cid, g.Cid)
				s.Equal(w.Description, g.Description)
				s.Equal(w.Type, g.Type)
				s.Equal(w.Loc, g.Loc)
				s.ElementsMatch(w.Items, g.Items)
			}
			s.Zero(got.Skipped)
		})
	}
}

func (s *CodecSuite) TestJSONLayout() {
	data, err := JSONCodec{}.Encode(&Snapshot{
		Containers: []ContainerRecord{{Cid: "C1", Description: "d", Type: "Hub", Loc: []float64{1, 2}}},
	})
	s.Require().NoError(err)
	s.JSONEq(`{"items":[],"containers":[{"cid":"C1","deleted":false,"description":"d","items":[],"loc":[1,2],"type":"Hub"}]}`, string(data))
}

func (s *CodecSuite) TestMalformedRecordsAreSkipped() {
	s.Run("json", func() {
		data := []byte(`{
			"items": [
				{"id": "CI00000001", "sendernam": "a", "recipnam": "b", "recipaddr": "c", "owner": "d", "state": "accepted"},
				{"id": 17},
				"garbage"
			],
			"containers": [
				{"cid": "C1", "description": "d", "type": "Hub", "loc": "north"},
				{"cid": "C2", "description": "d", "type": "Hub", "loc": [1, 2]}
			]
		}`)

		snap, err := JSONCodec{}.Decode(data)

		s.Require().NoError(err)
		s.Len(snap.Items, 1)
		s.Len(snap.Containers, 1)
		s.Equal("C2", snap.Containers[0].Cid)
		s.Equal(3, snap.Skipped)
	})

	s.Run("cbor", func() {
		data, err := cbor.Marshal(map[string]any{
			"items": []any{
				map[string]any{"id": "CI00000001", "state": "accepted"},
				42,
			},
			"containers": []any{},
		})
		s.Require().NoError(err)

		snap, err := CBORCodec{}.Decode(data)

		s.Require().NoError(err)
		s.Len(snap.Items, 1)
		s.Equal(1, snap.Skipped)
	})
}

func (s *CodecSuite) TestBrokenEnvelope() {
	_, err := JSONCodec{}.Decode([]byte(`{"items": [`))
	s.Error(err)
	_, err = CBORCodec{}.Decode([]byte{0xff, 0x00})
	s.Error(err)
}

func (s *CodecSuite) TestCBORIsDeterministic() {
	a, err := CBORCodec{}.Encode(sampleSnapshot())
	s.Require().NoError(err)
	b, err := CBORCodec{}.Encode(sampleSnapshot())
	s.Require().NoError(err)
	s.Equal(a, b)
}

func (s *CodecSuite) TestCodecByName() {
	c, err := CodecByName("")
	s.Require().NoError(err)
	s.Equal("json", c.Name())
	c, err = CodecByName("cbor")
	s.Require().NoError(err)
	s.Equal("cbor", c.Name())
	_, err = CodecByName("xml")
	s.Error(err)
}

func (s *CodecSuite) TestEncodeDoesNotMutateInput() {
	snap := &Snapshot{Containers: []ContainerRecord{{Cid: "C1"}}}
	_, err := JSONCodec{}.Encode(snap)
	s.Require().NoError(err)
	s.Nil(snap.Containers[0].Items)
}
