package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

const snapshotVersion = 1

// BotRecord is the durable form of a bot, keyed by Name.
type BotRecord struct {
	Name        string         `msgpack:"name"`
	Personality string         `msgpack:"personality"`
	Color       string         `msgpack:"color"`
	Layers      []LayerWeights `msgpack:"layers"`
	Epsilon     float64        `msgpack:"epsilon"`
	Stats       BotStats       `msgpack:"stats"`
}

// Record captures the bot's persistent state.
func (b *Bot) Record() BotRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BotRecord{
		Name:        b.Name,
		Personality: b.Personality,
		Color:       b.Color,
		Layers:      b.brain.Weights(),
		Epsilon:     b.epsilon,
		Stats:       b.stats,
	}
}

// Restore loads rec into the bot. On a shape mismatch the bot is left
// untouched.
func (b *Bot) Restore(rec BotRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.brain.SetWeights(rec.Layers); err != nil {
		return err
	}
	b.epsilon = rec.Epsilon
	b.stats = rec.Stats
	if rec.Personality != "" {
		b.Personality = rec.Personality
	}
	if rec.Color != "" {
		b.Color = rec.Color
	}
	return nil
}

// SnapshotHeader is the plain JSON first line of a snapshot file.
type SnapshotHeader struct {
	Version int    `json:"version"`
	SavedAt int64  `json:"saved_at"`
	Bots    int    `json:"bots"`
	Names   string `json:"names"`
}

// BrainStore persists bot records to sqlite and keeps a rolling set of
// zstd-compressed snapshot files.
type BrainStore struct {
	db        *DB
	dir       string
	retention time.Duration
	now       func() time.Time
}

func NewBrainStore(db *DB, snapshotDir string, retention time.Duration) *BrainStore {
	return &BrainStore{db: db, dir: snapshotDir, retention: retention, now: time.Now}
}

// Save upserts every record, writes a snapshot and prunes old snapshots.
func (s *BrainStore) Save(records []BotRecord) error {
	enc := make(map[string][]byte, len(records))
	for _, r := range records {
		b, err := msgpack.Marshal(&r)
		if err != nil {
			return fmt.Errorf("encode %s: %w", r.Name, err)
		}
		enc[r.Name] = b
	}
	if err := s.db.PutBrains(enc); err != nil {
		return fmt.Errorf("save brains: %w", err)
	}
	if s.dir == "" {
		return nil
	}
	if _, err := s.WriteSnapshot(records); err != nil {
		return err
	}
	if _, err := s.Prune(); err != nil {
		return err
	}
	return nil
}

// Load returns the stored record for name, or ErrNoRecord.
func (s *BrainStore) Load(name string) (BotRecord, error) {
	var rec BotRecord
	raw, err := s.db.GetBrain(name)
	if err != nil {
		return rec, err
	}
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("decode %s: %w", name, err)
	}
	return rec, nil
}

func snapshotName(t time.Time) string {
	return fmt.Sprintf("brains-%d.snap", t.UnixNano())
}

// snapshotTime parses the timestamp out of a snapshot file name.
func snapshotTime(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, "brains-") || !strings.HasSuffix(name, ".snap") {
		return time.Time{}, false
	}
	ns, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, "brains-"), ".snap"), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}

// WriteSnapshot writes records to a new timestamped file in the snapshot
// directory and returns its path.
func (s *BrainStore) WriteSnapshot(records []BotRecord) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	now := s.now()
	path := filepath.Join(s.dir, snapshotName(now))
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	hdr := SnapshotHeader{Version: snapshotVersion, SavedAt: now.Unix(), Bots: len(records), Names: strings.Join(names, ",")}
	if err := writeSnapshotFile(path, hdr, records); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("snapshot %s: %w", path, err)
	}
	return path, nil
}

func writeSnapshotFile(path string, hdr SnapshotHeader, records []BotRecord) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err := writeSnapshotBody(enc, hdr, records); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func writeSnapshotBody(w io.Writer, hdr SnapshotHeader, records []BotRecord) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	hb, _ := json.Marshal(hdr)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := msgpack.NewEncoder(bw).Encode(records); err != nil {
		return fmt.Errorf("msgpack encode: %w", err)
	}
	return bw.Flush()
}

// ReadSnapshot decodes a snapshot file written by WriteSnapshot.
func ReadSnapshot(path string) (SnapshotHeader, []BotRecord, error) {
	var hdr SnapshotHeader
	f, err := os.Open(path)
	if err != nil {
		return hdr, nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return hdr, nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return hdr, nil, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &hdr); err != nil {
		return hdr, nil, fmt.Errorf("decode header: %w", err)
	}
	var records []BotRecord
	if err := msgpack.NewDecoder(br).Decode(&records); err != nil {
		return hdr, nil, fmt.Errorf("msgpack decode: %w", err)
	}
	return hdr, records, nil
}

// Snapshots lists snapshot paths, oldest first.
func (s *BrainStore) Snapshots() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	type snap struct {
		path string
		at   time.Time
	}
	var snaps []snap
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if at, ok := snapshotTime(e.Name()); ok {
			snaps = append(snaps, snap{filepath.Join(s.dir, e.Name()), at})
		}
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].at.Before(snaps[j].at) })
	out := make([]string, len(snaps))
	for i, sn := range snaps {
		out[i] = sn.path
	}
	return out, nil
}

// Prune deletes snapshots older than the retention window. The newest
// snapshot is always kept.
func (s *BrainStore) Prune() (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	paths, err := s.Snapshots()
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-s.retention)
	removed := 0
	for i, p := range paths {
		if i == len(paths)-1 {
			break
		}
		at, _ := snapshotTime(filepath.Base(p))
		if !at.Before(cutoff) {
			continue
		}
		if err := os.Remove(p); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
