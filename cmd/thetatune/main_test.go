package main

import (
	"fmt"
	"sync"
	"testing"
)

func TestPendingPathsTake(t *testing.T) {
	var p pendingPaths

	if image, save := p.take(); image != "" || save != "" {
		t.Fatalf("take() on empty = %q, %q", image, save)
	}

	p.setImage("a.png")
	p.setSave("tune.yaml")
	p.setImage("b.png")

	image, save := p.take()
	if image != "b.png" || save != "tune.yaml" {
		t.Errorf("take() = %q, %q, want b.png, tune.yaml", image, save)
	}
	if image, save := p.take(); image != "" || save != "" {
		t.Errorf("second take() = %q, %q, want empty", image, save)
	}
}

func TestPendingPathsConcurrent(t *testing.T) {
	var p pendingPaths
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p.setImage(fmt.Sprintf("%d.png", i))
			p.setSave(fmt.Sprintf("%d.yaml", i))
		}(i)
	}

	var images, saves int
	count := func() {
		image, save := p.take()
		if image != "" {
			images++
		}
		if save != "" {
			saves++
		}
	}
	for i := 0; i < 100; i++ {
		count()
	}
	wg.Wait()
	count()

	if images == 0 || saves == 0 {
		t.Errorf("took %d images and %d saves, want at least one of each", images, saves)
	}
}
