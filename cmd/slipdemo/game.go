package main

import (
	"time"

	"github.com/onegii/go-slip/slip"
)

// phaseTags are the regions instrumented by the simulated game loop.
type phaseTags struct {
	Frame   slip.Tag
	Update  slip.Tag
	Physics slip.Tag
	AI      slip.Tag
	Render  slip.Tag
	Draw    slip.Tag
	Present slip.Tag
}

func declarePhases(t *slip.Tracker) phaseTags {
	return phaseTags{
		Frame:   slip.Declare(t, "Frame"),
		Update:  slip.Declare(t, "Update"),
		Physics: slip.Declare(t, "Physics"),
		AI:      slip.Declare(t, "AI"),
		Render:  slip.Declare(t, "Render"),
		Draw:    slip.Declare(t, "Draw"),
		Present: slip.Declare(t, "Present"),
	}
}

// game runs frames against a tracker. spend stands in for the work done by
// a phase.
type game struct {
	tracker *slip.Tracker
	tags    phaseTags
	spend   func(d time.Duration)
}

func (g *game) frame(n int) {
	defer g.tracker.Scope(g.tags.Frame).End()

	g.update(n)
	g.render(n)
}

func (g *game) update(n int) {
	defer g.tracker.Scope(g.tags.Update).End()

	g.tracker.Do(g.tags.Physics, func() {
		g.spend(time.Duration(400+n%7*25) * time.Microsecond)
	})

	// AI only thinks every other frame.
	if n%2 == 0 {
		g.tracker.Do(g.tags.AI, func() {
			g.spend(250 * time.Microsecond)
		})
	}
}

func (g *game) render(n int) {
	defer g.tracker.Scope(g.tags.Render).End()

	// Cloth and particles are simulated on the render side too.
	g.tracker.Do(g.tags.Physics, func() {
		g.spend(120 * time.Microsecond)
	})

	for i := 0; i < 3; i++ {
		g.tracker.Do(g.tags.Draw, func() {
			g.spend(time.Duration(300+i*50+n%3*10) * time.Microsecond)
		})
	}

	g.tracker.Do(g.tags.Present, func() {
		g.spend(80 * time.Microsecond)
	})
}
