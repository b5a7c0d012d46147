package main

import (
	"flag"
	"log"
	"time"

	"github.com/DirusLupito/Light-Year-Wars-C-sub000/client"
	"github.com/DirusLupito/Light-Year-Wars-C-sub000/game"
)

const (
	tickRate   = 60
	joinRetry  = time.Second
	reportEach = 5 * time.Second
)

// Headless observer client: joins, mirrors the match, and logs a summary
// of planet ownership. Rendering and move selection plug in on top of the
// client package; this binary just proves the sync loop end to end.
func main() {
	addr := flag.String("addr", "127.0.0.1:7855", "server address")
	name := flag.String("name", "Observer", "display name")
	flag.Parse()

	c, err := client.Dial(*addr)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if err := c.Join(*name); err != nil {
		log.Fatalf("join: %v", err)
	}
	log.Printf("joining %s as %q...", *addr, *name)

	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()
	lastJoin := time.Now()
	lastReport := time.Now()

	for range ticker.C {
		if err := c.Poll(); err != nil {
			log.Fatalf("server refused us: %v", err)
		}
		c.Step(1.0 / tickRate)

		// Joins are fire-and-forget over UDP; retry until the full
		// packet lands.
		if !c.HasFull && time.Since(lastJoin) > joinRetry {
			if err := c.Join(*name); err != nil {
				log.Fatalf("join: %v", err)
			}
			lastJoin = time.Now()
		}

		if c.HasFull && time.Since(lastReport) > reportEach {
			lastReport = time.Now()
			report(c)
		}
	}
}

func report(c *client.Client) {
	owned := make(map[int32]int)
	neutral := 0
	for i := range c.Level.Planets {
		p := &c.Level.Planets[i]
		if p.Owner == game.NoFaction {
			neutral++
		} else {
			owned[p.Owner]++
		}
	}
	log.Printf("faction %d | %d ships in flight | %d neutral planets | holdings: %v",
		c.Faction, len(c.Level.Ships), neutral, owned)
}
