package codec

import (
	"context"
	"testing"
	"time"

	"github.com/SamiFAHIM/go-taskmsg/core"
)

type reading struct {
	Seq     uint16
	Source  string
	Samples []int16
}

// TestMsgpackSerializer_RoundTrip verifies encoding symmetry
func TestMsgpackSerializer_RoundTrip(t *testing.T) {
	// Arrange
	s := NewMsgpackSerializer()
	in := reading{Seq: 42, Source: "adc0", Samples: []int16{-3, 0, 512}}

	// Act
	data, err := s.Serialize(in)
	if err != nil {
		t.Fatalf("Serialize() = %v, want nil", err)
	}
	var out reading
	if err := s.Deserialize(data, &out); err != nil {
		t.Fatalf("Deserialize() = %v, want nil", err)
	}

	// Assert
	if out.Seq != in.Seq || out.Source != in.Source {
		t.Errorf("Round trip = %+v, want %+v", out, in)
	}
	if len(out.Samples) != 3 || out.Samples[2] != 512 {
		t.Errorf("Samples = %v, want %v", out.Samples, in.Samples)
	}
	if s.Name() != "msgpack" {
		t.Errorf("Name() = %q, want %q", s.Name(), "msgpack")
	}
}

// TestMsgpackSerializer_Guards verifies input validation
func TestMsgpackSerializer_Guards(t *testing.T) {
	s := NewMsgpackSerializer()

	if err := s.Deserialize([]byte{0xc0}, nil); err == nil {
		t.Error("Deserialize(nil target) = nil, want error")
	}
	var out reading
	if err := s.Deserialize(nil, &out); err == nil {
		t.Error("Deserialize(empty data) = nil, want error")
	}
}

// TestJSONSerializer_RoundTrip verifies the JSON alternative
func TestJSONSerializer_RoundTrip(t *testing.T) {
	s := NewJSONSerializer()

	data, err := s.Serialize(map[string]int{"depth": 3})
	if err != nil {
		t.Fatalf("Serialize() = %v, want nil", err)
	}
	var out map[string]int
	if err := s.Deserialize(data, &out); err != nil {
		t.Fatalf("Deserialize() = %v, want nil", err)
	}
	if out["depth"] != 3 {
		t.Errorf("depth = %d, want 3", out["depth"])
	}
	if s.Name() != "json" {
		t.Errorf("Name() = %q, want %q", s.Name(), "json")
	}
}

// TestDecode_TypeMismatch verifies that decoding into the wrong shape fails
func TestDecode_TypeMismatch(t *testing.T) {
	data, err := Encode(reading{Seq: 1})
	if err != nil {
		t.Fatalf("Encode() = %v, want nil", err)
	}

	if _, err := Decode[string](data); err == nil {
		t.Error("Decode[string](struct bytes) = nil, want error")
	}
	if _, err := Decode[reading](nil); err == nil {
		t.Error("Decode(empty) = nil, want error")
	}
}

// TestDecoder_CollectsTypedResult verifies the decoder seam end to end
// Given: A dispatcher whose work function returns an Encode()d struct
// When: The requester collects with Decoder[reading]()
// Then: The typed value arrives intact
func TestDecoder_CollectsTypedResult(t *testing.T) {
	// Arrange
	reg := core.NewRegistry()
	d, err := core.NewDispatcher(reg, core.DispatcherConfig{
		Name:   "worker",
		Logger: &core.NoOpLogger{},
	})
	if err != nil {
		t.Fatalf("NewDispatcher() = %v, want nil", err)
	}
	defer d.Close()
	d.Start(context.Background())

	got := make(chan reading, 1)
	fail := make(chan error, 1)
	requester, err := core.NewTask(reg, 1, "requester", func(ctx context.Context, self *core.Task) {
		out, err := core.SubmitAndCollect(d, self, func(args any) []byte {
			data, _ := Encode(reading{Seq: 7, Source: args.(string)})
			return data
		}, "adc1", 0x0042, core.Forever, Decoder[reading]())
		if err != nil {
			fail <- err
			return
		}
		got <- out
	}, core.TaskOptions{Logger: &core.NoOpLogger{}})
	if err != nil {
		t.Fatalf("NewTask() = %v, want nil", err)
	}
	defer requester.Close()
	requester.Start(context.Background())

	// Assert
	select {
	case out := <-got:
		if out.Seq != 7 || out.Source != "adc1" {
			t.Errorf("Collected = %+v, want Seq 7 Source adc1", out)
		}
	case err := <-fail:
		t.Fatalf("SubmitAndCollect() = %v, want nil", err)
	case <-time.After(2 * time.Second):
		t.Fatal("Result did not arrive")
	}
}
