package main

import "sync"

// Hub owns the set of live connections. Registration goes through channels
// so the read pumps never touch the client set directly; connection quotas
// are checked synchronously in the HTTP handler.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once

	game      *Game
	bans      *BanList
	analytics *Analytics
	cfg       ServerConfig

	quotaMu sync.Mutex
	perIP   map[string]int
	total   int
}

func NewHub(game *Game, cfg ServerConfig, analytics *Analytics) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		stop:       make(chan struct{}),
		game:       game,
		bans:       NewBanList(),
		analytics:  analytics,
		cfg:        cfg,
		perIP:      make(map[string]int),
	}
}

// reserve claims a connection slot for ip. The check and the increment
// happen under one lock so concurrent upgrades cannot overshoot the caps.
func (h *Hub) reserve(ip string) bool {
	h.quotaMu.Lock()
	defer h.quotaMu.Unlock()
	if h.total >= h.cfg.MaxTotalConns || h.perIP[ip] >= h.cfg.MaxConnsPerIP {
		return false
	}
	h.perIP[ip]++
	h.total++
	return true
}

// release returns a slot taken by reserve
func (h *Hub) release(ip string) {
	h.quotaMu.Lock()
	defer h.quotaMu.Unlock()
	if n := h.perIP[ip] - 1; n > 0 {
		h.perIP[ip] = n
	} else {
		delete(h.perIP, ip)
	}
	h.total--
}

// Run processes registrations until Stop. Unregistering a client closes
// its send queue and removes its avatar from the arena.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[c]
			if ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			if ok && c.playerID != "" {
				h.game.RemovePlayer(c.playerID)
			}

		case <-h.stop:
			return
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns is the number of reserved connection slots
func (h *Hub) TotalConns() int {
	h.quotaMu.Lock()
	defer h.quotaMu.Unlock()
	return h.total
}
