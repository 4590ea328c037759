package orch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/dkeye/Rendezvous/internal/app"
	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/dkeye/Rendezvous/internal/core/mock"
	"github.com/dkeye/Rendezvous/internal/domain"
)

type fakeConn struct {
	id core.ConnID

	mu     sync.Mutex
	state  core.ConnState
	frames []core.Frame
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: core.ConnID(id)}
}

func (c *fakeConn) ID() core.ConnID { return c.id }

func (c *fakeConn) State() core.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != core.StateOpen {
		return core.ErrConnClosed
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == core.StateOpen {
		c.state = core.StateClosing
	}
}

func (c *fakeConn) received() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

type decoded struct {
	Type    core.MessageType `json:"type"`
	Payload struct {
		RoomID   string `json:"roomId"`
		Username string `json:"username"`
		Message  string `json:"message"`
	} `json:"payload"`
}

func decodeAll(t *testing.T, frames []core.Frame) []decoded {
	t.Helper()
	out := make([]decoded, 0, len(frames))
	for _, f := range frames {
		var d decoded
		if err := json.Unmarshal(f, &d); err != nil {
			t.Fatalf("decode %s: %v", f, err)
		}
		out = append(out, d)
	}
	return out
}

func newOrch() *Orchestrator {
	return New(app.NewRegistry(), app.DropPolicy{})
}

func offer(room string, n int) core.Signal {
	raw := core.Frame(fmt.Sprintf(`{"type":"offer","payload":{"roomId":%q,"offer":{"type":"offer","sdp":"v=0 %d"}}}`, room, n))
	return core.Signal{Type: core.TypeOffer, RoomID: domain.RoomID(room), Raw: raw}
}

func TestJoin_FirstMemberGetsRoomJoined(t *testing.T) {
	o := newOrch()
	a := newFakeConn("a")
	if err := o.Join(a, "AB12", "A"); err != nil {
		t.Fatalf("join: %v", err)
	}
	got := decodeAll(t, a.received())
	if len(got) != 1 || got[0].Type != core.TypeRoomJoined || got[0].Payload.RoomID != "AB12" || got[0].Payload.Username != "A" {
		t.Fatalf("unexpected frames: %#v", got)
	}
}

func TestJoin_SecondMemberNotifiesFirst(t *testing.T) {
	o := newOrch()
	a, b := newFakeConn("a"), newFakeConn("b")
	_ = o.Join(a, "AB12", "A")
	a.reset()

	if err := o.Join(b, "AB12", "B"); err != nil {
		t.Fatalf("join: %v", err)
	}
	ga := decodeAll(t, a.received())
	if len(ga) != 1 || ga[0].Type != core.TypeNewUser || ga[0].Payload.Username != "B" || ga[0].Payload.RoomID != "AB12" {
		t.Fatalf("a frames: %#v", ga)
	}
	gb := decodeAll(t, b.received())
	if len(gb) != 1 || gb[0].Type != core.TypeRoomJoined {
		t.Fatalf("b frames: %#v", gb)
	}
}

func TestJoin_FullRoomRepliesThenCloses(t *testing.T) {
	o := newOrch()
	a, b, c := newFakeConn("a"), newFakeConn("b"), newFakeConn("c")
	_ = o.Join(a, "AB12", "A")
	_ = o.Join(b, "AB12", "B")
	a.reset()
	b.reset()

	if err := o.Join(c, "AB12", "C"); !errors.Is(err, app.ErrRoomFull) {
		t.Fatalf("err=%v, want ErrRoomFull", err)
	}
	gc := decodeAll(t, c.received())
	if len(gc) != 1 || gc[0].Type != core.TypeRoomFull || gc[0].Payload.Message == "" {
		t.Fatalf("c frames: %#v", gc)
	}
	if c.State() == core.StateOpen {
		t.Fatalf("rejected connection left open")
	}
	if len(a.received())+len(b.received()) != 0 {
		t.Fatalf("members notified about a rejected join")
	}
	info, _ := o.Registry.Get("AB12")
	if info.MemberCount != 2 {
		t.Fatalf("member count=%d", info.MemberCount)
	}
}

func TestJoin_SkipsNewUserForClosingMember(t *testing.T) {
	o := newOrch()
	a, b := newFakeConn("a"), newFakeConn("b")
	_ = o.Join(a, "AB12", "A")
	a.reset()
	a.Close()

	_ = o.Join(b, "AB12", "B")
	if got := a.received(); len(got) != 0 {
		t.Fatalf("closing member got %s", got)
	}
}

func TestLeave_TwoMemberRoomNotifiesRemaining(t *testing.T) {
	o := newOrch()
	a, b := newFakeConn("a"), newFakeConn("b")
	_ = o.Join(a, "AB12", "A")
	_ = o.Join(b, "AB12", "B")
	a.reset()
	b.reset()

	o.Leave(b, "AB12")
	ga := decodeAll(t, a.received())
	if len(ga) != 1 || ga[0].Type != core.TypeUserLeft || ga[0].Payload.RoomID != "AB12" {
		t.Fatalf("a frames: %#v", ga)
	}
	if len(b.received()) != 0 {
		t.Fatalf("leaver was notified")
	}
}

func TestLeave_LastMemberDeletesRoomSilently(t *testing.T) {
	o := newOrch()
	a := newFakeConn("a")
	_ = o.Join(a, "AB12", "A")
	a.reset()

	o.Leave(a, "AB12")
	if len(a.received()) != 0 {
		t.Fatalf("unexpected frames: %s", a.received())
	}
	if o.Registry.Has("AB12") {
		t.Fatalf("room not deleted")
	}
}

func TestLeave_UnknownRoomAndNonMemberAreNoOps(t *testing.T) {
	o := newOrch()
	a, b := newFakeConn("a"), newFakeConn("b")
	o.Leave(a, "nope")

	_ = o.Join(a, "AB12", "A")
	a.reset()
	o.Leave(b, "AB12")
	if len(a.received()) != 0 || !o.Registry.Has("AB12") {
		t.Fatalf("non-member leave had an effect")
	}
}

func TestRelay_DeliversExactlyOnceToPeer(t *testing.T) {
	o := newOrch()
	a, b := newFakeConn("a"), newFakeConn("b")
	c, d := newFakeConn("c"), newFakeConn("d")
	_ = o.Join(a, "AB12", "A")
	_ = o.Join(b, "AB12", "B")
	_ = o.Join(c, "CD34", "C")
	_ = o.Join(d, "CD34", "D")
	for _, fc := range []*fakeConn{a, b, c, d} {
		fc.reset()
	}

	sig := offer("AB12", 1)
	if !o.Relay(a, sig) {
		t.Fatalf("relay reported failure")
	}
	gb := b.received()
	if len(gb) != 1 || !bytes.Equal(gb[0], sig.Raw) {
		t.Fatalf("b frames: %s", gb)
	}
	if len(a.received())+len(c.received())+len(d.received()) != 0 {
		t.Fatalf("offer leaked to sender or another room")
	}
}

func TestRelay_Drops(t *testing.T) {
	o := newOrch()
	a, b, x := newFakeConn("a"), newFakeConn("b"), newFakeConn("x")
	_ = o.Join(a, "AB12", "A")
	a.reset()

	if o.Relay(a, offer("AB12", 1)) {
		t.Fatalf("relay with absent peer reported success")
	}
	if o.Relay(a, offer("nope", 1)) {
		t.Fatalf("relay to unknown room reported success")
	}
	_ = o.Join(b, "AB12", "B")
	a.reset()
	b.reset()
	if o.Relay(x, offer("AB12", 1)) {
		t.Fatalf("relay from non-member reported success")
	}
	if len(a.received())+len(b.received()) != 0 {
		t.Fatalf("dropped relay delivered something")
	}
}

func TestRelay_PreservesSenderOrder(t *testing.T) {
	o := newOrch()
	a, b := newFakeConn("a"), newFakeConn("b")
	_ = o.Join(a, "AB12", "A")
	_ = o.Join(b, "AB12", "B")
	b.reset()

	const n = 100
	for i := 0; i < n; i++ {
		o.Relay(a, offer("AB12", i))
	}
	got := b.received()
	if len(got) != n {
		t.Fatalf("received %d frames, want %d", len(got), n)
	}
	for i, f := range got {
		if !bytes.Equal(f, offer("AB12", i).Raw) {
			t.Fatalf("frame %d out of order: %s", i, f)
		}
	}
}

func TestOnDisconnect_ActsAsLeave(t *testing.T) {
	o := newOrch()
	a, b := newFakeConn("a"), newFakeConn("b")
	_ = o.Join(a, "AB12", "A")
	_ = o.Join(b, "AB12", "B")
	_ = o.Join(b, "EF56", "B")
	a.reset()

	o.OnDisconnect(b)
	ga := decodeAll(t, a.received())
	if len(ga) != 1 || ga[0].Type != core.TypeUserLeft || ga[0].Payload.RoomID != "AB12" {
		t.Fatalf("a frames: %#v", ga)
	}
	if o.Registry.Has("EF56") {
		t.Fatalf("room EF56 leaked after disconnect")
	}
	if info, _ := o.Registry.Get("AB12"); info.MemberCount != 1 {
		t.Fatalf("AB12 members=%d, want 1", info.MemberCount)
	}

	o.OnDisconnect(a)
	if o.Registry.Len() != 0 {
		t.Fatalf("rooms left: %v", o.Registry.List())
	}
}

func TestConcurrentJoins_NeverExceedCap(t *testing.T) {
	o := newOrch()
	const n = 40
	conns := make([]*fakeConn, n)
	var wg sync.WaitGroup
	for i := range conns {
		conns[i] = newFakeConn(fmt.Sprintf("c%d", i))
		wg.Add(1)
		go func(c *fakeConn) {
			defer wg.Done()
			_ = o.Join(c, "AB12", string(c.id))
		}(conns[i])
	}
	wg.Wait()

	rejected := 0
	for _, c := range conns {
		if c.State() != core.StateOpen {
			rejected++
			got := decodeAll(t, c.received())
			if len(got) != 1 || got[0].Type != core.TypeRoomFull {
				t.Fatalf("%s frames: %#v", c.id, got)
			}
		}
	}
	if rejected != n-core.MaxRoomMembers {
		t.Fatalf("rejected=%d, want %d", rejected, n-core.MaxRoomMembers)
	}
	if info, _ := o.Registry.Get("AB12"); info.MemberCount != core.MaxRoomMembers {
		t.Fatalf("members=%d", info.MemberCount)
	}
}

func TestBackpressure_Policies(t *testing.T) {
	cases := []struct {
		name   string
		policy app.Policy
		closes int
	}{
		{name: "drop", policy: app.DropPolicy{}, closes: 0},
		{name: "kick", policy: app.KickPolicy{}, closes: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			slow := mock.NewMockSignalConnection(ctrl)
			slow.EXPECT().ID().Return(core.ConnID("slow")).AnyTimes()
			slow.EXPECT().State().Return(core.StateOpen).AnyTimes()
			gomock.InOrder(
				slow.EXPECT().TrySend(gomock.Any()).Return(nil).Times(2), // room-joined, new-user
				slow.EXPECT().TrySend(gomock.Any()).Return(core.ErrBackpressure),
			)
			slow.EXPECT().Close().Times(tc.closes)

			o := New(app.NewRegistry(), tc.policy)
			a := newFakeConn("a")
			if err := o.Join(slow, "AB12", "S"); err != nil {
				t.Fatalf("join slow: %v", err)
			}
			if err := o.Join(a, "AB12", "A"); err != nil {
				t.Fatalf("join a: %v", err)
			}
			if o.Relay(a, offer("AB12", 1)) {
				t.Fatalf("relay into a full queue reported success")
			}
		})
	}
}
