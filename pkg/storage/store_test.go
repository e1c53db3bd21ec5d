// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"fmt"
	"io/ioutil"
	"os"
	"reflect"
	"sync"
	"testing"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
)

func setupStoreDir(t *testing.T) string {
	filePath, err := ioutil.TempFile("", "store")

	if err != nil {
		t.Fatal(err)
	} else {
		os.Remove(filePath.Name())
	}

	return filePath.Name()
}

// storeImpls creates each Store implementation, returning a cleanup function.
func storeImpls(t *testing.T) map[string]func() (Store, func()) {
	return map[string]func() (Store, func()){
		"memory": func() (Store, func()) {
			s := NewMemoryStore()
			return s, func() { _ = s.Close() }
		},
		"badger": func() (Store, func()) {
			dir := setupStoreDir(t)
			s, err := NewBadgerStore(dir)
			if err != nil {
				t.Fatal(err)
			}
			return s, func() {
				_ = s.Close()
				_ = os.RemoveAll(dir)
			}
		},
	}
}

func TestStoreFIFO(t *testing.T) {
	for name, impl := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			s, cleanup := impl()
			defer cleanup()

			a := bpv6.ParseEndpointID("dtn:a")
			b := bpv6.ParseEndpointID("dtn:b")

			for i := 0; i < 5; i++ {
				if err := s.Push(a, []byte(fmt.Sprintf("a%d", i))); err != nil {
					t.Fatal(err)
				}
				if err := s.Push(b, []byte(fmt.Sprintf("b%d", i))); err != nil {
					t.Fatal(err)
				}
			}

			if l := s.Len(a); l != 5 {
				t.Fatalf("queue a has %d items", l)
			}

			expected := []bpv6.EndpointID{a, b}
			if eids := s.Endpoints(); !reflect.DeepEqual(eids, expected) {
				t.Fatalf("endpoints are %v", eids)
			}

			for i := 0; i < 5; i++ {
				if frame, err := s.Peek(a); err != nil {
					t.Fatal(err)
				} else if string(frame) != fmt.Sprintf("a%d", i) {
					t.Fatalf("peeked %s at %d", frame, i)
				}

				if frame, err := s.Pop(a); err != nil {
					t.Fatal(err)
				} else if string(frame) != fmt.Sprintf("a%d", i) {
					t.Fatalf("popped %s at %d", frame, i)
				}
			}

			if _, err := s.Pop(a); err != ErrEmpty {
				t.Fatalf("empty queue returned %v", err)
			}
			if _, err := s.Peek(a); err != ErrEmpty {
				t.Fatalf("peeking an empty queue returned %v", err)
			}
			if _, err := s.Pop(bpv6.ParseEndpointID("dtn:unknown")); err != ErrEmpty {
				t.Fatalf("unknown queue returned %v", err)
			}

			if eids := s.Endpoints(); !reflect.DeepEqual(eids, []bpv6.EndpointID{b}) {
				t.Fatalf("endpoints after draining are %v", eids)
			}
			if l := s.Len(b); l != 5 {
				t.Fatalf("queue b has %d items", l)
			}
		})
	}
}

func TestStoreConcurrent(t *testing.T) {
	for name, impl := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			s, cleanup := impl()
			defer cleanup()

			eid := bpv6.ParseEndpointID("dtn:concurrent")

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					for j := 0; j < 10; j++ {
						if err := s.Push(eid, []byte{byte(i), byte(j)}); err != nil {
							t.Error(err)
						}
					}
				}(i)
			}
			wg.Wait()

			last := make(map[byte]int)
			for n := 0; n < 80; n++ {
				frame, err := s.Pop(eid)
				if err != nil {
					t.Fatalf("pop %d: %v", n, err)
				}

				if prev, ok := last[frame[0]]; ok && prev >= int(frame[1]) {
					t.Fatalf("producer %d out of order: %d after %d", frame[0], frame[1], prev)
				}
				last[frame[0]] = int(frame[1])
			}
		})
	}
}

func TestBadgerStorePersistence(t *testing.T) {
	dir := setupStoreDir(t)
	defer os.RemoveAll(dir)

	eid := bpv6.ParseEndpointID("dtn:persistent")

	s, err := NewBadgerStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, frame := range []string{"one", "two"} {
		if err := s.Push(eid, []byte(frame)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = NewBadgerStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Push(eid, []byte("three")); err != nil {
		t.Fatal(err)
	}

	for _, expected := range []string{"one", "two", "three"} {
		if frame, err := s.Pop(eid); err != nil {
			t.Fatal(err)
		} else if string(frame) != expected {
			t.Fatalf("popped %s, expected %s", frame, expected)
		}
	}
}
