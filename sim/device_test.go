package sim

import (
	"bytes"
	"testing"

	"github.com/steve-m/go-nuvoicp/icp"
)

func openSession(t *testing.T, dev *Device) *icp.Session {
	t.Helper()
	sess, err := icp.Open(dev)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return sess
}

func TestEntryAndExitHandshake(t *testing.T) {
	dev := NewDevice()
	if dev.InProgrammingMode() {
		t.Fatal("fresh device must not be in programming mode")
	}

	sess := openSession(t, dev)
	if !dev.InProgrammingMode() {
		t.Fatal("device did not recognize the entry handshake")
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("close session: %v", err)
	}
	if dev.InProgrammingMode() {
		t.Fatal("device did not recognize the exit handshake")
	}
}

func TestReadIdentity(t *testing.T) {
	dev := NewDevice()
	dev.DeviceID = 0x3650
	dev.CID = 0xDA
	dev.UID = 0xABCDEF
	dev.UCID = 0x01234567

	sess := openSession(t, dev)
	defer sess.Close()

	if got := sess.ReadDeviceID(); got != 0x3650 {
		t.Errorf("device ID = 0x%04X, want 0x3650", got)
	}
	if got := sess.ReadCID(); got != 0xDA {
		t.Errorf("CID = 0x%02X, want 0xDA", got)
	}
	if got := sess.ReadUID(); got != 0xABCDEF {
		t.Errorf("UID = 0x%06X, want 0xABCDEF", got)
	}
	if got := sess.ReadUCID(); got != 0x01234567 {
		t.Errorf("UCID = 0x%08X, want 0x01234567", got)
	}
}

func TestIdentityReadsIgnoreFlashContents(t *testing.T) {
	dev := NewDevice()
	dev.DeviceID = 0x3650
	dev.LoadFlash([]byte{0xAB, 0xCD, 0xEE, 0x11})

	sess := openSession(t, dev)
	defer sess.Close()

	// identity commands serve the identity registers, never flash bytes
	if got := sess.ReadDeviceID(); got != 0x3650 {
		t.Errorf("device ID = 0x%04X, want 0x3650", got)
	}

	// and interleaving with a flash read must not bleed either way
	buf := make([]byte, 2)
	sess.ReadFlash(0, buf)
	if !bytes.Equal(buf, []byte{0xAB, 0xCD}) {
		t.Errorf("flash read = % X, want AB CD", buf)
	}
	if got := sess.ReadCID(); got != dev.CID {
		t.Errorf("CID = 0x%02X, want 0x%02X", got, dev.CID)
	}
}

func TestReadFlash(t *testing.T) {
	dev := NewDevice()
	img := make([]byte, icp.FlashSize)
	for i := range img {
		img[i] = byte(i * 7)
	}
	dev.LoadFlash(img)

	sess := openSession(t, dev)
	defer sess.Close()

	buf := make([]byte, 512)
	next := sess.ReadFlash(0x100, buf)

	if next != 0x100+512 {
		t.Errorf("next address = 0x%X, want 0x%X", next, 0x100+512)
	}
	if !bytes.Equal(buf, img[0x100:0x100+512]) {
		t.Error("read data differs from device memory")
	}
}

func TestWriteFlash(t *testing.T) {
	dev := NewDevice()
	sess := openSession(t, dev)
	defer sess.Close()

	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x55}
	next := sess.WriteFlash(0x40, data)

	if next != 0x40+uint32(len(data)) {
		t.Errorf("next address = 0x%X, want 0x%X", next, 0x40+len(data))
	}

	flash := dev.FlashImage()
	if !bytes.Equal(flash[0x40:0x40+len(data)], data) {
		t.Errorf("flash content = % X, want % X", flash[0x40:0x40+len(data)], data)
	}
	if flash[0x3F] != 0xFF || flash[0x40+len(data)] != 0xFF {
		t.Error("write touched bytes outside the transfer")
	}
}

func TestWriteProgressCallback(t *testing.T) {
	dev := NewDevice()

	var calls [][2]int
	sess, err := icp.Open(dev, icp.WithWriteProgress(func(written, total int) {
		calls = append(calls, [2]int{written, total})
	}))
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	defer sess.Close()

	// config-block sized transfers stay silent
	sess.WriteFlash(icp.CfgFlashAddr, []byte{0x7F, 0xFE, 0xFF, 0xFF, 0xFF})
	if len(calls) != 0 {
		t.Fatalf("config block write reported progress %v", calls)
	}

	data := make([]byte, 600)
	sess.WriteFlash(0, data)

	want := [][2]int{{0, 600}, {256, 600}, {512, 600}}
	if len(calls) != len(want) {
		t.Fatalf("progress calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("progress call %d = %v, want %v", i, calls[i], want[i])
		}
	}
}

func TestConfigBlockAccess(t *testing.T) {
	dev := NewDevice()
	sess := openSession(t, dev)
	defer sess.Close()

	cfg := []byte{0x7F, 0xFE, 0xFF, 0xFF, 0xFF}
	sess.WriteFlash(icp.CfgFlashAddr, cfg)

	if !bytes.Equal(dev.ConfigBytes(), cfg) {
		t.Errorf("config block = % X, want % X", dev.ConfigBytes(), cfg)
	}

	buf := make([]byte, icp.CfgFlashLen)
	sess.ReadFlash(icp.CfgFlashAddr, buf)
	if !bytes.Equal(buf, cfg) {
		t.Errorf("config read-back = % X, want % X", buf, cfg)
	}
}

func TestMassErase(t *testing.T) {
	dev := NewDevice()
	img := make([]byte, icp.FlashSize)
	for i := range img {
		img[i] = 0xA5
	}
	dev.LoadFlash(img)

	sess := openSession(t, dev)
	defer sess.Close()

	sess.WriteFlash(icp.CfgFlashAddr, []byte{0x7F, 0xFE, 0xFF, 0xFF, 0xFF})
	sess.MassErase()

	for i, b := range dev.FlashImage() {
		if b != 0xFF {
			t.Fatalf("flash[0x%04X] = 0x%02X after mass erase, want 0xFF", i, b)
		}
	}
	for i, b := range dev.ConfigBytes() {
		if b != 0xFF {
			t.Fatalf("config[%d] = 0x%02X after mass erase, want 0xFF", i, b)
		}
	}

	// full read-back over the wire agrees
	buf := make([]byte, icp.FlashSize)
	sess.ReadFlash(0, buf)
	for i, b := range buf {
		if b != 0xFF {
			t.Fatalf("read-back[0x%04X] = 0x%02X after mass erase, want 0xFF", i, b)
		}
	}
}

func TestPageErase(t *testing.T) {
	dev := NewDevice()
	img := make([]byte, icp.FlashSize)
	for i := range img {
		img[i] = 0x42
	}
	dev.LoadFlash(img)

	sess := openSession(t, dev)
	defer sess.Close()

	sess.PageErase(icp.PageSize + 17)

	flash := dev.FlashImage()
	for i, b := range flash {
		inPage := i >= icp.PageSize && i < 2*icp.PageSize
		if inPage && b != 0xFF {
			t.Fatalf("flash[0x%04X] = 0x%02X inside erased page, want 0xFF", i, b)
		}
		if !inPage && b != 0x42 {
			t.Fatalf("flash[0x%04X] = 0x%02X outside erased page, want 0x42", i, b)
		}
	}
}

func TestMassEraseRequiresKey(t *testing.T) {
	dev := NewDevice()
	img := make([]byte, icp.FlashSize)
	dev.LoadFlash(img) // all zeroes

	sess := openSession(t, dev)
	defer sess.Close()

	// wrong key: the command must be ignored, the strobe erases nothing
	sess.SendCommand(icp.CmdMassErase, 0x12345)
	sess.WriteByte(0xFF, true, 0, 0)

	if dev.FlashImage()[0] != 0x00 {
		t.Error("mass erase ran despite a wrong key")
	}
}
