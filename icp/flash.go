package icp

// ReadDeviceID reads the 16-bit device ID.
func (s *Session) ReadDeviceID() uint16 {
	s.SendCommand(CmdReadDeviceID, 0)

	lo := s.ReadByte(false)
	hi := s.ReadByte(true)

	return uint16(hi)<<8 | uint16(lo)
}

// ReadCID reads the 8-bit company ID.
func (s *Session) ReadCID() byte {
	s.SendCommand(CmdReadCID, 0)
	return s.ReadByte(true)
}

// ReadUID reads the 24-bit unique ID, one byte per command, low byte first.
func (s *Session) ReadUID() uint32 {
	var uid uint32
	for i := 0; i < 3; i++ {
		s.SendCommand(CmdReadUID, uint32(i))
		uid |= uint32(s.ReadByte(true)) << (8 * i)
	}
	return uid
}

// ReadUCID reads the 32-bit unique customer ID, one byte per command,
// low byte first.
func (s *Session) ReadUCID() uint32 {
	var ucid uint32
	for i := 0; i < 4; i++ {
		s.SendCommand(CmdReadUID, uint32(i+UCIDIndexOffset))
		ucid |= uint32(s.ReadByte(true)) << (8 * i)
	}
	return ucid
}

// ReadFlash reads len(data) bytes starting at addr. The end marker is set
// only on the final byte. Returns the address following the transfer.
func (s *Session) ReadFlash(addr uint32, data []byte) uint32 {
	s.SendCommand(CmdReadFlash, addr)

	for i := range data {
		data[i] = s.ReadByte(i == len(data)-1)
	}

	return addr + uint32(len(data))
}

// WriteFlash programs len(data) bytes starting at addr, one program strobe
// per byte. The end marker is set only on the final byte. Returns the
// address following the transfer.
//
// When the transfer is longer than the config block, the session's
// WriteProgress callback fires once per 256 bytes.
func (s *Session) WriteFlash(addr uint32, data []byte) uint32 {
	s.SendCommand(CmdWriteFlash, addr)

	for i, b := range data {
		s.WriteByte(b, i == len(data)-1, FlashWriteSettleTime, FlashWriteStrobeTime)

		if i%writeProgressStep == 0 && len(data) > CfgFlashLen && s.config.WriteProgress != nil {
			s.config.WriteProgress(i, len(data))
		}
	}

	return addr + uint32(len(data))
}

// MassErase erases the entire flash array, config block included. The erase
// is triggered by a single 0xFF write with a 100 ms settle and a 10 ms
// strobe.
func (s *Session) MassErase() {
	s.SendCommand(CmdMassErase, MassEraseKey)
	s.WriteByte(0xFF, true, MassEraseSettleTime, MassEraseStrobeTime)
}

// PageErase erases the flash page containing addr with a 10 ms settle and
// a 1 ms strobe.
func (s *Session) PageErase(addr uint32) {
	s.SendCommand(CmdPageErase, addr)
	s.WriteByte(0xFF, true, PageEraseSettleTime, PageEraseStrobeTime)
}
