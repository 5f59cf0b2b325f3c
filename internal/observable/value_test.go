package observable

import (
	"sync"
	"testing"
)

func TestValueSetNotifies(t *testing.T) {
	v := NewValue(1)

	var got []int
	unsubscribe := v.Subscribe(func(n int) { got = append(got, n) })

	v.Set(2)
	v.Update(func(n int) int { return n * 10 })

	if v.Get() != 20 {
		t.Fatalf("Get() = %d, want 20", v.Get())
	}
	if len(got) != 2 || got[0] != 2 || got[1] != 20 {
		t.Errorf("notifications = %v, want [2 20]", got)
	}

	unsubscribe()
	v.Set(3)
	if len(got) != 2 {
		t.Errorf("unsubscribed callback still notified: %v", got)
	}
	if v.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", v.Subscribers())
	}
}

func TestSiblingCellsAreIndependent(t *testing.T) {
	a := NewValue("a")
	b := NewValue("b")
	list := NewValue([]*Value[string]{a, b})

	var aCalls, bCalls, listCalls int
	a.Subscribe(func(string) { aCalls++ })
	b.Subscribe(func(string) { bCalls++ })
	list.Subscribe(func([]*Value[string]) { listCalls++ })

	a.Set("a2")

	if aCalls != 1 {
		t.Errorf("a notified %d times, want 1", aCalls)
	}
	if bCalls != 0 {
		t.Errorf("sibling b notified %d times, want 0", bCalls)
	}
	if listCalls != 0 {
		t.Errorf("list notified %d times on cell change, want 0", listCalls)
	}
}

func TestValueConcurrentUpdate(t *testing.T) {
	v := NewValue(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Update(func(n int) int { return n + 1 })
		}()
	}
	wg.Wait()

	if v.Get() != 50 {
		t.Errorf("Get() = %d, want 50", v.Get())
	}
}
