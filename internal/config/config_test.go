package config

import "testing"

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	c := Default()
	if c.VideoFPS != 60 || c.AudioFPS != 100 || c.MaxClients != 9 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.AudioQueueMax != 50 || c.OpusBitrateBps != 128000 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.OpusApplication != OpusApplicationAudio {
		t.Fatalf("expected default opus application 'audio', got %q", c.OpusApplication)
	}
	if c.CharAspect != 2.0 {
		t.Fatalf("expected default char aspect 2.0, got %v", c.CharAspect)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]string{"-video-fps=30", "-max-clients=4", "-opus-application=voip"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.VideoFPS != 30 || c.MaxClients != 4 || c.OpusApplication != OpusApplicationVoip {
		t.Fatalf("unexpected parsed config: %+v", c)
	}
}

func TestParseRejectsOutOfRangeVideoFPS(t *testing.T) {
	if _, err := Parse([]string{"-video-fps=200"}); err == nil {
		t.Fatal("expected error for video-fps above 144")
	}
}

func TestParseRejectsInvalidOpusApplication(t *testing.T) {
	if _, err := Parse([]string{"-opus-application=bogus"}); err == nil {
		t.Fatal("expected error for invalid opus-application")
	}
}

func TestVideoIntervalClampsOutOfRangeFPS(t *testing.T) {
	c := Default()
	c.VideoFPS = 1000 // bypass Validate to exercise the clamp directly
	if got := c.VideoInterval(); got <= 0 {
		t.Fatalf("expected positive clamped interval, got %v", got)
	}
}
