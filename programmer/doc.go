// Package programmer provides a high-level API for reading and writing the
// flash of Nuvoton N76E003 microcontrollers over the three-wire ICP
// interface.
//
// # Overview
//
// This package orchestrates complete programming sessions:
//   - Entering programming mode through the fixed handshake
//   - Gating on the device ID and reading the device identity
//   - Mass erasing and programming the APROM and LDROM regions
//   - Writing the config block when an LDROM boot image is installed
//   - Verifying the entire flash against the programmed image
//   - Exiting programming mode, in every outcome
//
// # Basic Usage
//
// Programming an application image:
//
//	drv := rpi.New(20, 26, 21) // DAT, CLK, RST
//	prog := programmer.New(drv)
//
//	aprom, err := os.ReadFile("firmware.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := prog.Program(context.Background(), aprom, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("wrote %d bytes, verified=%v\n", res.BytesWritten, res.Verified)
//
// Reading the entire flash:
//
//	img, err := prog.Dump(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("dump.bin", img, 0o644)
//
// # Installing a Boot Loader
//
// Passing an LDROM image reserves whole kilobytes at the top of flash for
// it, writes the config block so the device boots from LDROM, and shrinks
// the space available to the APROM accordingly:
//
//	res, err := prog.Program(ctx, aprom, ldrom)
//
// # Progress Tracking
//
// Track session progress with a callback:
//
//	prog := programmer.New(drv,
//	    programmer.WithProgressCallback(func(p programmer.Progress) {
//	        fmt.Printf("[%s] %d/%d\n", p.Phase, p.BytesDone, p.TotalBytes)
//	    }),
//	)
//
// # Error Handling
//
// Failure classes are distinguished by type: *DeviceMismatchError for the
// identity gate, *target.ImageSizeError for images that do not fit, and
// *VerificationError for a read-back mismatch after programming. In every
// case the session is closed through the exit handshake before the error
// is returned.
package programmer
