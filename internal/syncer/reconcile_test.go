package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/pathsync/internal/notify"
	"github.com/dropDatabas3/pathsync/internal/paths"
)

func TestReconcileRoundSkipsOnContention(t *testing.T) {
	remote := &fakeRemote{lastSeen: paths.SeqBase}
	c, err := New(testConfig(&fakeInit{}, staticRemote(remote)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	c.mu.Lock()
	done := make(chan struct{})
	go func() {
		c.reconcileRound()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("la ronda bloqueó con el lock tomado")
	}
	if c.syncConfirmed {
		t.Fatalf("la ronda corrió a pesar de la contención")
	}
	c.mu.Unlock()

	c.reconcileRound()
	if !c.Status().SyncConfirmed {
		t.Fatalf("la ronda sin contención no confirmó la sincronía")
	}
}

func TestReconcileRoundSkipsBeforeInit(t *testing.T) {
	dials := 0
	factory := func() (notify.Client, error) {
		dials++
		return &fakeRemote{}, nil
	}
	init := &fakeInit{release: make(chan struct{})}
	cfg := testConfig(init, factory)
	cfg.AsyncInit = true

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()
	defer close(init.release)

	c.reconcileRound()
	if dials != 0 {
		t.Fatalf("la ronda marcó al remoto con el cache sin inicializar")
	}
	if c.Status().SyncConfirmed {
		t.Fatalf("sincronía confirmada sin cache")
	}
}

func TestCommFailureInvalidatesClient(t *testing.T) {
	bad := &fakeRemote{seenErr: errors.New("connection refused")}
	good := &fakeRemote{lastSeen: paths.SeqBase}
	dials := 0
	factory := func() (notify.Client, error) {
		dials++
		if dials == 1 {
			return bad, nil
		}
		return good, nil
	}

	c, err := New(testConfig(&fakeInit{}, factory))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	c.reconcileRound()
	if c.Status().SyncConfirmed {
		t.Fatalf("confirmó sincronía con el remoto caído")
	}
	if !bad.closed {
		t.Fatalf("el handle fallado no se cerró")
	}
	if c.Status().RemoteOpen {
		t.Fatalf("el handle fallado sigue cacheado")
	}

	// El próximo tick reconecta lazy y confirma.
	c.reconcileRound()
	if dials != 2 {
		t.Fatalf("dials = %d, want 2", dials)
	}
	st := c.Status()
	if !st.SyncConfirmed || !st.RemoteOpen {
		t.Fatalf("tras reconectar: confirmed=%v open=%v", st.SyncConfirmed, st.RemoteOpen)
	}
}

func TestTimerHealsDivergence(t *testing.T) {
	remote := &fakeRemote{lastSeen: 0, trackAck: true}
	cfg := testConfig(&fakeInit{}, staticRemote(remote))
	cfg.InitialDelay = 5 * time.Millisecond
	cfg.Period = 5 * time.Millisecond

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(remote.pushed()) > 0 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	got := remote.pushed()
	if len(got) == 0 {
		t.Fatalf("el timer nunca reenvió la imagen completa")
	}
	if !got[0].FullImage || got[0].Seq != paths.SeqBase {
		t.Fatalf("push = FullImage:%v Seq:%d", got[0].FullImage, got[0].Seq)
	}

	// Sanada la divergencia, las rondas siguientes quedan en in_sync y no
	// vuelven a empujar nada.
	time.Sleep(50 * time.Millisecond)
	if got := len(remote.pushed()); got != 1 {
		t.Fatalf("pushes tras converger = %d, want 1", got)
	}
	if got := c.seq.Current(); got != paths.SeqBase {
		t.Fatalf("la reconciliación avanzó la secuencia a %d", got)
	}
}

func TestResyncStampsFullImageWithLastSent(t *testing.T) {
	remote := &fakeRemote{lastSeen: paths.SeqBase, trackAck: true}
	c, err := New(testConfig(&fakeInit{}, staticRemote(remote)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	adds := []struct{ obj, path string }{
		{"db1", "/w/db1"},
		{"db1.t1", "/w/db1/t1"},
		{"db1.t2", "/w/db1/t2"},
	}
	for _, a := range adds {
		if err := c.OnPathAdded(a.obj, a.path); err != nil {
			t.Fatalf("add %s: %v", a.obj, err)
		}
	}
	wantSeq := int64(paths.SeqBase + 3)
	if st := c.Status(); st.LastSent != wantSeq {
		t.Fatalf("last_sent = %d, want %d", st.LastSent, wantSeq)
	}

	// El remoto se reinicia y pierde todo.
	remote.setLastSeen(0)

	st := c.Resync(context.Background())
	if !st.SyncConfirmed {
		t.Fatalf("resync no confirmó la sincronía")
	}

	got := remote.pushed()
	full := got[len(got)-1]
	if !full.FullImage {
		t.Fatalf("el resync no fue imagen completa")
	}
	if full.Seq != wantSeq {
		t.Fatalf("imagen sellada con seq %d, want lastSent %d", full.Seq, wantSeq)
	}
	if len(full.Changes) != 3 {
		t.Fatalf("la imagen trae %d objetos, want 3", len(full.Changes))
	}
	for _, ch := range full.Changes {
		if len(ch.DelPaths) != 0 || len(ch.AddPaths) == 0 {
			t.Fatalf("una imagen completa solo lleva altas: %+v", ch)
		}
	}
	if got := c.seq.Current(); got != wantSeq {
		t.Fatalf("el resync consumió secuencia: %d", got)
	}
	if st := c.Status(); st.LastSent != wantSeq || st.LastRemoteAck != wantSeq {
		t.Fatalf("tras el resync: last_sent=%d last_remote_ack=%d, want %d",
			st.LastSent, st.LastRemoteAck, wantSeq)
	}
}
