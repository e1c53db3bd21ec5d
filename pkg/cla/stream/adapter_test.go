// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package stream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
	"github.com/dtn7/dtn6-go/pkg/cla"
	"github.com/dtn7/dtn6-go/pkg/routing"
)

func getRandomPort(t *testing.T) int {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		t.Error(err)
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}

	defer func() { _ = l.Close() }()

	return l.Addr().(*net.TCPAddr).Port
}

// queueProtocol is a minimal cla.BundleProtocol with a FIFO queue per source.
type queueProtocol struct {
	queues map[bpv6.EndpointID][][]byte
	mutex  sync.Mutex
}

func newQueueProtocol() *queueProtocol {
	return &queueProtocol{queues: make(map[bpv6.EndpointID][][]byte)}
}

func (qp *queueProtocol) push(src bpv6.EndpointID, frame []byte) {
	qp.mutex.Lock()
	defer qp.mutex.Unlock()

	qp.queues[src] = append(qp.queues[src], frame)
}

func (qp *queueProtocol) ReceivePacket(_ []byte) {}

func (qp *queueProtocol) PeekBundle(src bpv6.EndpointID) ([]byte, error) {
	qp.mutex.Lock()
	defer qp.mutex.Unlock()

	if len(qp.queues[src]) == 0 {
		return nil, fmt.Errorf("empty queue for %v", src)
	}
	return qp.queues[src][0], nil
}

func (qp *queueProtocol) queued(src bpv6.EndpointID) int {
	qp.mutex.Lock()
	defer qp.mutex.Unlock()

	return len(qp.queues[src])
}

func (qp *queueProtocol) GetBundle(src bpv6.EndpointID) ([]byte, error) {
	qp.mutex.Lock()
	defer qp.mutex.Unlock()

	if len(qp.queues[src]) == 0 {
		return nil, fmt.Errorf("empty queue for %v", src)
	}
	frame := qp.queues[src][0]
	qp.queues[src] = qp.queues[src][1:]
	return frame, nil
}

// receiveFrames collects n ReceivedData messages from an Adapter's channel.
func receiveFrames(t *testing.T, ch chan cla.ConvergenceStatus, n int) [][]byte {
	var frames [][]byte
	timeout := time.After(5 * time.Second)

	for len(frames) < n {
		select {
		case cs := <-ch:
			if cs.MessageType == cla.ReceivedData {
				frames = append(frames, cs.Message.(cla.ConvergenceReceivedData).Data)
			}

		case <-timeout:
			t.Fatalf("received %d of %d frames", len(frames), n)
		}
	}
	return frames
}

func drain(ch chan cla.ConvergenceStatus) {
	go func() {
		for range ch {
		}
	}()
}

func setupPair(t *testing.T) (sender, receiver *Adapter, r *routing.StaticRouting) {
	r = routing.NewStaticRouting()
	if err := r.AddRoute(bpv6.ParseEndpointID("dtn:b"), fmt.Sprintf("127.0.0.1:%d", getRandomPort(t))); err != nil {
		t.Fatal(err)
	}

	sender = NewAdapter("stream-sender", TCPTransport{}, RawFramer{})
	sender.SetRoutingProtocol(r)
	drain(sender.Channel())

	receiver = NewAdapter("stream-receiver", TCPTransport{}, RawFramer{})
	receiver.SetRoutingProtocol(r)

	if err := receiver.EnableReceive(bpv6.ParseEndpointID("dtn:b")); err != nil {
		t.Fatal(err)
	}
	return
}

func TestAdapterSendReceive(t *testing.T) {
	sender, receiver, _ := setupPair(t)
	defer sender.Close()
	defer receiver.Close()

	const packets = 50

	var frames [][]byte
	for i := 0; i < packets; i++ {
		frame := testFrame(t, "dtn:a", "dtn:b", []byte(fmt.Sprintf("packet %d", i)))
		frames = append(frames, frame)

		if err := sender.SendPacket(frame); err != nil {
			t.Fatal(err)
		}
	}

	received := receiveFrames(t, receiver.Channel(), packets)
	for i := range frames {
		if !bytes.Equal(frames[i], received[i]) {
			t.Fatalf("frame %d differs", i)
		}
	}

	if _, ok := sender.TransportHandle(bpv6.ParseEndpointID("dtn:a")); !ok {
		t.Fatal("sender has no connection for dtn:a")
	}
	if _, ok := receiver.TransportHandle(bpv6.ParseEndpointID("dtn:b")); !ok {
		t.Fatal("receiver has no listener for dtn:b")
	}
}

func TestAdapterBundleProtocol(t *testing.T) {
	sender, receiver, _ := setupPair(t)
	defer sender.Close()
	defer receiver.Close()

	qp := newQueueProtocol()
	sender.SetBundleProtocol(qp)

	src := bpv6.ParseEndpointID("dtn:a")
	first := testFrame(t, "dtn:a", "dtn:b", []byte("first"))
	second := testFrame(t, "dtn:a", "dtn:b", []byte("second"))
	qp.push(src, first)
	qp.push(src, second)

	// The given bundle only selects the queue, the oldest one is sent.
	for i := 0; i < 2; i++ {
		if err := sender.SendPacket(second); err != nil {
			t.Fatal(err)
		}
	}

	received := receiveFrames(t, receiver.Channel(), 2)
	if !bytes.Equal(received[0], first) || !bytes.Equal(received[1], second) {
		t.Fatal("frames were not sent in queue order")
	}

	if err := sender.SendPacket(second); err == nil {
		t.Fatal("sending from an empty queue succeeded")
	}
}

func TestAdapterNoRoute(t *testing.T) {
	sender, receiver, _ := setupPair(t)
	defer sender.Close()
	defer receiver.Close()

	frame := testFrame(t, "dtn:a", "dtn:unknown", []byte("lost"))
	if err := sender.SendPacket(frame); !errors.Is(err, cla.ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}

	if err := sender.EnableSend(bpv6.ParseEndpointID("dtn:a"), bpv6.ParseEndpointID("dtn:unknown")); !errors.Is(err, cla.ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}

	unrouted := NewAdapter("unrouted", TCPTransport{}, RawFramer{})
	defer unrouted.Close()
	if err := unrouted.SendPacket(frame); !errors.Is(err, cla.ErrNoRoutingProtocol) {
		t.Fatalf("expected ErrNoRoutingProtocol, got %v", err)
	}
}

func TestAdapterTransportFailure(t *testing.T) {
	r := routing.NewStaticRouting()
	if err := r.AddRoute(bpv6.ParseEndpointID("dtn:b"), fmt.Sprintf("127.0.0.1:%d", getRandomPort(t))); err != nil {
		t.Fatal(err)
	}

	sender := NewAdapter("stream-sender", TCPTransport{}, RawFramer{})
	defer sender.Close()
	sender.SetRoutingProtocol(r)

	frame := testFrame(t, "dtn:a", "dtn:b", []byte("nobody listens"))
	if err := sender.SendPacket(frame); !errors.Is(err, cla.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

// failingTransport dials successfully, but every write fails.
type failingTransport struct {
	dials int32
}

func (ft *failingTransport) Dial(_ string) (Conn, error) {
	atomic.AddInt32(&ft.dials, 1)
	return failingConn{}, nil
}

func (ft *failingTransport) Listen(address string) (Listener, error) {
	return nil, fmt.Errorf("cannot listen on %s", address)
}

type failingConn struct{}

func (failingConn) Read(_ []byte) (int, error) {
	return 0, io.EOF
}

func (failingConn) Write(_ []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func (failingConn) Close() error {
	return nil
}

func (failingConn) RemoteAddress() string {
	return "failing"
}

func TestAdapterWriteFailureKeepsQueue(t *testing.T) {
	r := routing.NewStaticRouting()
	if err := r.AddRoute(bpv6.ParseEndpointID("dtn:b"), "192.0.2.1:4556"); err != nil {
		t.Fatal(err)
	}

	ft := &failingTransport{}
	sender := NewAdapter("stream-failing", ft, RawFramer{})
	defer sender.Close()
	sender.SetRoutingProtocol(r)
	drain(sender.Channel())

	qp := newQueueProtocol()
	sender.SetBundleProtocol(qp)

	src := bpv6.ParseEndpointID("dtn:a")
	frames := [][]byte{
		testFrame(t, "dtn:a", "dtn:b", []byte("first")),
		testFrame(t, "dtn:a", "dtn:b", []byte("second")),
		testFrame(t, "dtn:a", "dtn:b", []byte("third")),
	}
	for _, frame := range frames {
		qp.push(src, frame)
	}

	for i := 0; i < 3; i++ {
		if err := sender.SendPacket(frames[0]); !errors.Is(err, cla.ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		if n := qp.queued(src); n != len(frames) {
			t.Fatalf("expected %d queued bundles after attempt %d, got %d", len(frames), i, n)
		}
	}

	if head, err := qp.PeekBundle(src); err != nil {
		t.Fatal(err)
	} else if !bytes.Equal(head, frames[0]) {
		t.Fatal("head of queue changed")
	}

	// The broken connection is dropped and dialed again on each attempt.
	if dials := atomic.LoadInt32(&ft.dials); dials != 3 {
		t.Fatalf("expected 3 dials, got %d", dials)
	}
}

func TestAdapterConcurrentSendKeepsOrder(t *testing.T) {
	sender, receiver, _ := setupPair(t)
	defer sender.Close()
	defer receiver.Close()

	qp := newQueueProtocol()
	sender.SetBundleProtocol(qp)

	const packets = 50

	src := bpv6.ParseEndpointID("dtn:a")
	var frames [][]byte
	for i := 0; i < packets; i++ {
		frame := testFrame(t, "dtn:a", "dtn:b", []byte(fmt.Sprintf("packet %d", i)))
		frames = append(frames, frame)
		qp.push(src, frame)
	}

	var wg sync.WaitGroup
	errs := make(chan error, packets)
	for i := 0; i < packets; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- sender.SendPacket(frames[0])
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	received := receiveFrames(t, receiver.Channel(), packets)
	for i := range frames {
		if !bytes.Equal(frames[i], received[i]) {
			t.Fatalf("frame %d differs or was sent twice", i)
		}
	}
	if n := qp.queued(src); n != 0 {
		t.Fatalf("%d bundles are still queued", n)
	}
}

func TestAdapterListensOnRoutedPort(t *testing.T) {
	port := getRandomPort(t)

	r := routing.NewStaticRouting()
	// The routed host is not local, only its port is used to listen.
	if err := r.AddRoute(bpv6.ParseEndpointID("dtn:b"), fmt.Sprintf("192.0.2.1:%d", port)); err != nil {
		t.Fatal(err)
	}
	if err := r.AddRoute(bpv6.ParseEndpointID("dtn:b-local"), fmt.Sprintf("127.0.0.1:%d", port)); err != nil {
		t.Fatal(err)
	}

	receiver := NewAdapter("stream-receiver", TCPTransport{}, RawFramer{})
	defer receiver.Close()
	receiver.SetRoutingProtocol(r)

	if err := receiver.EnableReceive(bpv6.ParseEndpointID("dtn:b")); err != nil {
		t.Fatal(err)
	}

	sender := NewAdapter("stream-sender", TCPTransport{}, RawFramer{})
	defer sender.Close()
	sender.SetRoutingProtocol(r)
	drain(sender.Channel())

	frame := testFrame(t, "dtn:a", "dtn:b-local", []byte("any interface"))
	if err := sender.SendPacket(frame); err != nil {
		t.Fatal(err)
	}

	if received := receiveFrames(t, receiver.Channel(), 1); !bytes.Equal(received[0], frame) {
		t.Fatal("received frame differs")
	}
}

func TestAdapterReceiveToggle(t *testing.T) {
	sender, receiver, r := setupPair(t)
	defer sender.Close()
	defer receiver.Close()

	b := bpv6.ParseEndpointID("dtn:b")
	b2 := bpv6.ParseEndpointID("dtn:b2")
	if err := r.AddRoute(b2, r.GetRoute(b)); err != nil {
		t.Fatal(err)
	}

	if err := receiver.EnableReceive(b); !errors.Is(err, cla.ErrAlreadyReceiving) {
		t.Fatalf("expected ErrAlreadyReceiving, got %v", err)
	}

	// dtn:b2 shares dtn:b's address and thus its listener.
	if err := receiver.EnableReceive(b2); err != nil {
		t.Fatal(err)
	}
	if err := receiver.DisableReceive(b); err != nil {
		t.Fatal(err)
	}
	if _, ok := receiver.TransportHandle(b2); !ok {
		t.Fatal("shared listener was closed")
	}
	if err := receiver.DisableReceive(b2); err != nil {
		t.Fatal(err)
	}

	if err := receiver.DisableReceive(b2); !errors.Is(err, cla.ErrNotReceiving) {
		t.Fatalf("expected ErrNotReceiving, got %v", err)
	}

	// The address must be free again.
	if err := receiver.EnableReceive(b); err != nil {
		t.Fatal(err)
	}
}

func TestAdapterClose(t *testing.T) {
	sender, receiver, _ := setupPair(t)

	if err := sender.SendPacket(testFrame(t, "dtn:a", "dtn:b", []byte("bye"))); err != nil {
		t.Fatal(err)
	}
	_ = receiveFrames(t, receiver.Channel(), 1)

	if err := sender.Close(); err != nil {
		t.Fatal(err)
	}
	if err := receiver.Close(); err != nil {
		t.Fatal(err)
	}

	for range receiver.Channel() {
	}

	if err := receiver.EnableReceive(bpv6.ParseEndpointID("dtn:b")); !errors.Is(err, cla.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
