package stats

import (
	"time"

	"github.com/golang/protobuf/proto"
)

// The status messages are encoded with protobuf, field numbers are part of
// the wire contract with monitors:
//
//	message PumpStatus {
//	  string name = 1;
//	  uint64 reads = 2;
//	  uint64 timeouts = 3;
//	  uint64 bytes = 4;
//	  uint64 writes = 5;
//	  uint64 read_errors = 6;
//	  uint64 write_errors = 7;
//	  string last_error = 8;
//	  int64 last_forward = 9;  // unix nanoseconds, 0 if never
//	}
//
//	message StatusMsg {
//	  string bridge_id = 1;
//	  int64 time = 2;          // unix nanoseconds
//	  int64 started = 3;       // unix nanoseconds
//	  repeated PumpStatus pumps = 4;
//	}

// PumpStatus is the wire form of a Snapshot.
type PumpStatus struct {
	Name        string `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Reads       uint64 `protobuf:"varint,2,opt,name=reads,proto3" json:"reads,omitempty"`
	Timeouts    uint64 `protobuf:"varint,3,opt,name=timeouts,proto3" json:"timeouts,omitempty"`
	Bytes       uint64 `protobuf:"varint,4,opt,name=bytes,proto3" json:"bytes,omitempty"`
	Writes      uint64 `protobuf:"varint,5,opt,name=writes,proto3" json:"writes,omitempty"`
	ReadErrors  uint64 `protobuf:"varint,6,opt,name=read_errors,json=readErrors,proto3" json:"read_errors,omitempty"`
	WriteErrors uint64 `protobuf:"varint,7,opt,name=write_errors,json=writeErrors,proto3" json:"write_errors,omitempty"`
	LastError   string `protobuf:"bytes,8,opt,name=last_error,json=lastError,proto3" json:"last_error,omitempty"`
	LastForward int64  `protobuf:"varint,9,opt,name=last_forward,json=lastForward,proto3" json:"last_forward,omitempty"`
}

// Reset implements proto.Message.
func (m *PumpStatus) Reset() { *m = PumpStatus{} }

// String implements proto.Message.
func (m *PumpStatus) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*PumpStatus) ProtoMessage() {}

// StatusMsg is the periodic status of a bridge.
type StatusMsg struct {
	BridgeId string        `protobuf:"bytes,1,opt,name=bridge_id,json=bridgeId,proto3" json:"bridge_id,omitempty"`
	Time     int64         `protobuf:"varint,2,opt,name=time,proto3" json:"time,omitempty"`
	Started  int64         `protobuf:"varint,3,opt,name=started,proto3" json:"started,omitempty"`
	Pumps    []*PumpStatus `protobuf:"bytes,4,rep,name=pumps,proto3" json:"pumps,omitempty"`
}

// Reset implements proto.Message.
func (m *StatusMsg) Reset() { *m = StatusMsg{} }

// String implements proto.Message.
func (m *StatusMsg) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*StatusMsg) ProtoMessage() {}

// Encode encodes the message to bytes.
func (m *StatusMsg) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeStatus decodes bytes into StatusMsg.
func DecodeStatus(data []byte) (*StatusMsg, error) {
	var msg StatusMsg
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// NewStatusMsg builds a StatusMsg from snapshots.
func NewStatusMsg(id string, started, now time.Time, snapshots []Snapshot) *StatusMsg {
	msg := &StatusMsg{
		BridgeId: id,
		Time:     now.UnixNano(),
		Started:  started.UnixNano(),
		Pumps:    make([]*PumpStatus, len(snapshots)),
	}
	for n, s := range snapshots {
		ps := &PumpStatus{
			Name:        s.Name,
			Reads:       s.Reads,
			Timeouts:    s.Timeouts,
			Bytes:       s.Bytes,
			Writes:      s.Writes,
			ReadErrors:  s.ReadErrors,
			WriteErrors: s.WriteErrors,
			LastError:   s.LastError,
		}
		if !s.LastForward.IsZero() {
			ps.LastForward = s.LastForward.UnixNano()
		}
		msg.Pumps[n] = ps
	}
	return msg
}

// Snapshots converts the message back into snapshots.
func (m *StatusMsg) Snapshots() []Snapshot {
	snapshots := make([]Snapshot, len(m.Pumps))
	for n, ps := range m.Pumps {
		s := Snapshot{
			Name:        ps.Name,
			Reads:       ps.Reads,
			Timeouts:    ps.Timeouts,
			Bytes:       ps.Bytes,
			Writes:      ps.Writes,
			ReadErrors:  ps.ReadErrors,
			WriteErrors: ps.WriteErrors,
			LastError:   ps.LastError,
		}
		if ps.LastForward != 0 {
			s.LastForward = time.Unix(0, ps.LastForward)
		}
		snapshots[n] = s
	}
	return snapshots
}
