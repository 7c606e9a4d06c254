package programmer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/steve-m/go-nuvoicp/icp"
	"github.com/steve-m/go-nuvoicp/sim"
	"github.com/steve-m/go-nuvoicp/target"
)

// recordingLogger captures log calls for inspection.
type recordingLogger struct {
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (l *recordingLogger) Debug(msg string, kv ...interface{}) {
	l.debugMsgs = append(l.debugMsgs, msg)
}

func (l *recordingLogger) Info(msg string, kv ...interface{}) {
	l.infoMsgs = append(l.infoMsgs, msg)
}

func (l *recordingLogger) Error(msg string, kv ...interface{}) {
	l.errorMsgs = append(l.errorMsgs, msg)
}

func TestNewPanicsOnNilDriver(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on nil driver")
		}
	}()
	New(nil)
}

func TestProgramAPROMAndLDROM(t *testing.T) {
	dev := sim.NewDevice()

	aprom := make([]byte, 100)
	for i := range aprom {
		aprom[i] = byte(i + 1)
	}
	ldrom := make([]byte, 1024)
	for i := range ldrom {
		ldrom[i] = byte(0x80 + i)
	}

	prog := New(dev, WithLogger(&recordingLogger{}))
	res, err := prog.Program(context.Background(), aprom, ldrom)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Verified {
		t.Error("result not marked verified")
	}
	if want := len(aprom) + len(ldrom) + icp.CfgFlashLen; res.BytesWritten != want {
		t.Errorf("BytesWritten = %d, want %d", res.BytesWritten, want)
	}

	flash := dev.FlashImage()
	if !bytes.Equal(flash[:100], aprom) {
		t.Error("APROM region differs from programmed image")
	}
	for i := 100; i < icp.FlashSize-1024; i++ {
		if flash[i] != 0xFF {
			t.Fatalf("flash[0x%04X] = 0x%02X, want erased 0xFF", i, flash[i])
		}
	}
	if !bytes.Equal(flash[icp.FlashSize-1024:], ldrom) {
		t.Error("LDROM region differs from programmed image")
	}

	wantCfg := []byte{0x7F, 0xFE, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(dev.ConfigBytes(), wantCfg) {
		t.Errorf("config block = % X, want % X", dev.ConfigBytes(), wantCfg)
	}

	if res.Config.BootSource != target.BootFromLDROM {
		t.Errorf("boot source = %v, want LDROM", res.Config.BootSource)
	}
	if res.Config.LDROMSizeKB != 1 {
		t.Errorf("LDROM size = %d KB, want 1", res.Config.LDROMSizeKB)
	}

	if dev.InProgrammingMode() {
		t.Error("device left in programming mode")
	}
}

func TestProgramAPROMOnly(t *testing.T) {
	dev := sim.NewDevice()

	aprom := []byte{0x02, 0x00, 0x40, 0x75, 0x81, 0xFF, 0x22}
	prog := New(dev)

	res, err := prog.Program(context.Background(), aprom, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Verified {
		t.Error("result not marked verified")
	}
	if res.Config.BootSource != target.BootFromAPROM {
		t.Errorf("boot source = %v, want APROM", res.Config.BootSource)
	}
	if res.Config.LDROMSizeKB != 0 {
		t.Errorf("LDROM size = %d KB, want 0", res.Config.LDROMSizeKB)
	}

	flash := dev.FlashImage()
	if !bytes.Equal(flash[:len(aprom)], aprom) {
		t.Error("APROM region differs from programmed image")
	}
}

func TestIdentityGateAbortsCleanly(t *testing.T) {
	dev := sim.NewDevice()
	dev.DeviceID = 0x2F50

	prog := New(dev)
	res, err := prog.Program(context.Background(), []byte{0x01}, nil)

	var mismatch *DeviceMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error = %v, want *DeviceMismatchError", err)
	}
	if mismatch.Actual != 0x2F50 || mismatch.Expected != icp.DeviceIDN76E003 {
		t.Errorf("mismatch = %+v", mismatch)
	}
	if res == nil || res.Info.DeviceID != 0x2F50 {
		t.Error("result does not carry the offending device ID")
	}

	// the only command issued must be the device ID read
	if ops := dev.Commands(); len(ops) != 1 || ops[0] != icp.CmdReadDeviceID {
		t.Errorf("commands issued = %v, want only the device ID read", ops)
	}

	// the exit handshake still ran
	if dev.InProgrammingMode() {
		t.Error("device left in programming mode after abort")
	}
}

func TestProgramRejectsOversizedImages(t *testing.T) {
	dev := sim.NewDevice()
	prog := New(dev)

	tests := []struct {
		name   string
		aprom  []byte
		ldrom  []byte
		region string
	}{
		{name: "ldrom too large", ldrom: make([]byte, icp.LDROMMaxSize+1), region: "LDROM"},
		{name: "aprom too large", aprom: make([]byte, icp.FlashSize+1), region: "APROM"},
		{
			name:   "aprom collides with ldrom",
			aprom:  make([]byte, icp.FlashSize-1024+1),
			ldrom:  make([]byte, 1024),
			region: "APROM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := prog.Program(context.Background(), tt.aprom, tt.ldrom)

			var sizeErr *target.ImageSizeError
			if !errors.As(err, &sizeErr) {
				t.Fatalf("error = %v, want *target.ImageSizeError", err)
			}
			if sizeErr.Region != tt.region {
				t.Errorf("region = %q, want %q", sizeErr.Region, tt.region)
			}
		})
	}

	if len(dev.Commands()) != 0 {
		t.Error("oversized images must be rejected before the device is touched")
	}
}

func TestProgramRequiresAnImage(t *testing.T) {
	prog := New(sim.NewDevice())
	if _, err := prog.Program(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for empty images")
	}
}

func TestDumpMatchesDeviceMemory(t *testing.T) {
	dev := sim.NewDevice()
	img := make([]byte, icp.FlashSize)
	for i := range img {
		img[i] = byte(i ^ i>>8)
	}
	dev.LoadFlash(img)

	prog := New(dev)
	got, err := prog.Dump(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.Equal(got, img) {
		t.Fatal("dump differs from device memory")
	}
	if dev.InProgrammingMode() {
		t.Error("device left in programming mode")
	}
}

func TestIdentify(t *testing.T) {
	dev := sim.NewDevice()
	dev.CID = 0x55
	dev.UID = 0x424242
	dev.UCID = 0xCAFEF00D

	prog := New(dev)
	info, err := prog.Identify(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := target.DeviceInfo{
		DeviceID: icp.DeviceIDN76E003,
		CID:      0x55,
		UID:      0x424242,
		UCID:     0xCAFEF00D,
	}
	if info != want {
		t.Errorf("info = %+v, want %+v", info, want)
	}
}

func TestProgressPhases(t *testing.T) {
	dev := sim.NewDevice()

	var phases []string
	prog := New(dev, WithProgressCallback(func(p Progress) {
		if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
			phases = append(phases, p.Phase)
		}
	}))

	aprom := make([]byte, 16)
	ldrom := make([]byte, 16)
	if _, err := prog.Program(context.Background(), aprom, ldrom); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		PhaseEntering,
		PhaseIdentifying,
		PhaseErasing,
		PhaseProgrammingLDROM,
		PhaseProgrammingAPROM,
		PhaseVerifying,
		PhaseExiting,
		PhaseComplete,
	}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases = %v, want %v", phases, want)
		}
	}
}

func TestProgramCancelledBeforeErase(t *testing.T) {
	dev := sim.NewDevice()
	img := make([]byte, icp.FlashSize) // all zeroes, easy to spot an erase
	dev.LoadFlash(img)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prog := New(dev)
	_, err := prog.Program(ctx, []byte{0x01}, nil)
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context cancellation", err)
	}

	if dev.FlashImage()[0] != 0x00 {
		t.Error("flash was erased despite cancellation")
	}
	if dev.InProgrammingMode() {
		t.Error("device left in programming mode after cancellation")
	}
}
