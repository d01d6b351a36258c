package transcode

import (
	"testing"
)

func feed(t *testing.T, p *progressParser, lines ...string) {
	t.Helper()
	for _, line := range lines {
		p.ParseLine(line)
	}
}

func TestProgressParserBlock(t *testing.T) {
	p := newProgressParser(100)

	feed(t, p,
		"frame=250",
		"bitrate=1500.2kbits/s",
		"total_size=1048576",
		"out_time_us=50000000",
		"speed=2.5x",
	)

	snapshot, publish := p.ParseLine("progress=continue")
	if !publish {
		t.Fatal("Expected block terminator to publish a snapshot")
	}
	if snapshot.Frames != 250 {
		t.Errorf("Expected 250 frames, got %d", snapshot.Frames)
	}
	if snapshot.SizeBytes != 1048576 {
		t.Errorf("Expected 1048576 bytes, got %d", snapshot.SizeBytes)
	}
	if snapshot.OutTimeSec != 50 {
		t.Errorf("Expected 50s position, got %f", snapshot.OutTimeSec)
	}
	if snapshot.Percent != 50 {
		t.Errorf("Expected 50%% with 100s duration, got %f", snapshot.Percent)
	}
	if snapshot.Speed != "2.5x" {
		t.Errorf("Expected speed 2.5x, got %s", snapshot.Speed)
	}
	if snapshot.Bitrate != "1500.2kbits/s" {
		t.Errorf("Expected bitrate preserved, got %s", snapshot.Bitrate)
	}
}

func TestProgressParserMergesAcrossBlocks(t *testing.T) {
	p := newProgressParser(200)

	feed(t, p, "speed=1.0x", "out_time_us=10000000")
	p.ParseLine("progress=continue")

	// Second block omits speed, previous value must persist.
	feed(t, p, "out_time_us=20000000")
	snapshot, publish := p.ParseLine("progress=continue")
	if !publish {
		t.Fatal("Expected second block to publish")
	}
	if snapshot.Speed != "1.0x" {
		t.Errorf("Expected speed to persist across blocks, got %q", snapshot.Speed)
	}
	if snapshot.OutTimeSec != 20 {
		t.Errorf("Expected updated position 20s, got %f", snapshot.OutTimeSec)
	}
}

func TestProgressParserIgnoresUnknownValues(t *testing.T) {
	p := newProgressParser(100)

	feed(t, p, "bitrate=1000kbits/s", "speed=1.5x")
	p.ParseLine("progress=continue")

	feed(t, p, "bitrate=N/A", "speed=N/A")
	snapshot, _ := p.ParseLine("progress=continue")

	if snapshot.Bitrate != "1000kbits/s" {
		t.Errorf("Expected N/A bitrate to be ignored, got %q", snapshot.Bitrate)
	}
	if snapshot.Speed != "1.5x" {
		t.Errorf("Expected N/A speed to be ignored, got %q", snapshot.Speed)
	}
}

func TestProgressParserUnknownDuration(t *testing.T) {
	p := newProgressParser(0)

	feed(t, p, "out_time_us=30000000")
	snapshot, publish := p.ParseLine("progress=continue")
	if !publish {
		t.Fatal("Expected block terminator to publish")
	}
	if snapshot.Percent != 0 {
		t.Errorf("Expected no percent without a duration, got %f", snapshot.Percent)
	}
	if snapshot.ETASec != -1 {
		t.Errorf("Expected unknown ETA, got %d", snapshot.ETASec)
	}
	if snapshot.OutTimeSec != 30 {
		t.Errorf("Expected position still tracked, got %f", snapshot.OutTimeSec)
	}
}

func TestProgressParserCapsPercent(t *testing.T) {
	p := newProgressParser(10)

	feed(t, p, "out_time_us=15000000")
	snapshot, _ := p.ParseLine("progress=end")

	if snapshot.Percent != 100 {
		t.Errorf("Expected percent capped at 100, got %f", snapshot.Percent)
	}
}

func TestProgressParserMalformedLines(t *testing.T) {
	p := newProgressParser(100)

	feed(t, p,
		"out_time_us=not-a-number",
		"frame=abc",
		"total_size=",
		"random noise without equals",
	)

	snapshot, publish := p.ParseLine("progress=continue")
	if !publish {
		t.Fatal("Expected terminator to publish despite malformed lines")
	}
	if snapshot.Frames != 0 || snapshot.SizeBytes != 0 || snapshot.OutTimeSec != 0 {
		t.Error("Expected malformed values to be ignored")
	}
}
