package main

// EventKind enumerates what happened to a player during a tick. Bots turn
// these into rewards; metrics and analytics count them.
type EventKind uint8

const (
	EvFoodEaten EventKind = iota
	EvPowerUp
	EvHit      // PlayerID landed a hit on OtherID
	EvHurt     // PlayerID was hit by OtherID
	EvShielded // PlayerID absorbed a hit
	EvKill     // PlayerID killed OtherID
	EvDeath    // PlayerID was killed by OtherID
	EvMiss     // a projectile of PlayerID expired without hitting
	EvWall     // PlayerID touched the world bounds
)

type GameEvent struct {
	Kind     EventKind
	PlayerID string
	OtherID  string
	Value    float64
}

func (g *Game) emit(kind EventKind, playerID, otherID string, value float64) {
	g.events = append(g.events, GameEvent{Kind: kind, PlayerID: playerID, OtherID: otherID, Value: value})
}

// outMsg is a message queued during a tick and delivered after the tick
// lock is released. An empty To means every connected client.
type outMsg struct {
	To   string
	Env  Envelope
	Kick string // non-empty: disconnect To with this reason after sending
}

func (g *Game) sendTo(playerID string, env Envelope) {
	g.outbox = append(g.outbox, outMsg{To: playerID, Env: env})
}

func (g *Game) sendAll(env Envelope) {
	g.outbox = append(g.outbox, outMsg{Env: env})
}

func (g *Game) notice(text, color string) {
	g.sendAll(Envelope{T: MsgNotice, Data: NoticeMsg{Text: text, Color: color}})
}

func (g *Game) kick(playerID, reason string) {
	g.outbox = append(g.outbox, outMsg{To: playerID, Kick: reason,
		Env: Envelope{T: MsgError, Data: ErrorMsg{Msg: reason}}})
}

// deliver sends queued messages. It must run without g.mu held.
func (g *Game) deliver(msgs []outMsg, clients map[string]Broadcaster) {
	for _, m := range msgs {
		if m.To == "" {
			for _, c := range clients {
				c.SendJSON(m.Env)
			}
			continue
		}
		c, ok := clients[m.To]
		if !ok {
			continue
		}
		c.SendJSON(m.Env)
		if m.Kick != "" {
			c.Disconnect(m.Kick)
		}
	}
}
