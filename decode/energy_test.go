package decode

import (
	"math"
	"testing"
)

func TestBoxcarMag(t *testing.T) {
	bm := NewBoxcarMag(2)
	output := make([]float64, 4)

	// Full scale I, centered Q: unit power once averaged.
	if n := bm.Execute([]byte{0x00, 0x80, 0x00}, output); n != 0 {
		t.Fatalf("expected 0 bins got %d\n", n)
	}
	if n := bm.Execute([]byte{0x80}, output); n != 1 {
		t.Fatalf("expected 1 bin got %d\n", n)
	}

	expected := math.Pow(127.5/127.5, 2) + math.Pow(-0.5/127.5, 2)
	if math.Abs(output[0]-expected) > 1e-9 {
		t.Fatalf("expected %f got %f\n", expected, output[0])
	}
}

func TestBoxcarMagCancels(t *testing.T) {
	bm := NewBoxcarMag(2)
	output := make([]float64, 1)

	// Opposite phases average to nothing.
	if n := bm.Execute([]byte{0x00, 0x7F, 0xFF, 0x7F}, output); n != 1 {
		t.Fatalf("expected 1 bin got %d\n", n)
	}
	if output[0] > 1e-3 {
		t.Fatalf("expected near zero power got %f\n", output[0])
	}
}

func TestEnergyDetector(t *testing.T) {
	cfg := NewConfig()
	cfg.BaselineWindow = 4
	ed := NewEnergyDetector(cfg)

	for i := 0; i < 16; i++ {
		if ed.Detect(0) {
			t.Fatal("silence detected as carrier")
		}
	}
	if ed.Baseline() != cfg.NoiseFloor {
		t.Fatalf("baseline fell below floor: %g\n", ed.Baseline())
	}

	if !ed.Detect(1) {
		t.Fatal("carrier not detected")
	}
	if ed.Baseline() != cfg.NoiseFloor {
		t.Fatalf("carrier moved baseline: %g\n", ed.Baseline())
	}

	// Carrier outlasting the averaging window is a raised noise floor.
	for i := 0; i < cfg.BaselineWindow; i++ {
		ed.Detect(1)
	}
	if ed.Baseline() != 1 {
		t.Fatalf("expected baseline reseeded to 1 got %g\n", ed.Baseline())
	}
	if ed.Detect(1) {
		t.Fatal("raised floor still detected as carrier")
	}
}

func TestEnergyDetectorTracksNoise(t *testing.T) {
	cfg := NewConfig()
	cfg.BaselineWindow = 8
	ed := NewEnergyDetector(cfg)

	noise := cfg.NoiseFloor * 4
	for i := 0; i < 256; i++ {
		ed.Detect(noise)
	}

	if math.Abs(ed.Baseline()-noise) > noise*1e-3 {
		t.Fatalf("expected baseline near %g got %g\n", noise, ed.Baseline())
	}
	if ed.Detect(noise * cfg.ThresholdFactor / 2) {
		t.Fatal("sub-threshold bin detected as carrier")
	}
	if !ed.Detect(noise * cfg.ThresholdFactor * 2) {
		t.Fatal("carrier not detected over raised baseline")
	}
}
