package wallet

import (
	"sync"
	"testing"
	"time"
)

func TestLockerSerializesSameWallet(t *testing.T) {
	locker := NewLocker()
	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("0xABC0000000000000000000000000000000000abc")
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("expected one flow at a time per wallet, saw %d", maxActive)
	}
}

func TestLockerCaseInsensitive(t *testing.T) {
	locker := NewLocker()
	unlock := locker.Lock("0xAbC0000000000000000000000000000000000aBc")

	acquired := make(chan struct{})
	go func() {
		u := locker.Lock("0xabc0000000000000000000000000000000000abc")
		u()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("differently cased address must map to the same lock")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was never released")
	}
}

func TestLockerIndependentWallets(t *testing.T) {
	locker := NewLocker()
	unlockA := locker.Lock("0x1110000000000000000000000000000000000111")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locker.Lock("0x2220000000000000000000000000000000000222")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated wallet must not block")
	}
}
