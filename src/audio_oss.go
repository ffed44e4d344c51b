package cwtone

/*------------------------------------------------------------------
 *
 * Purpose:   	Audio output via the OSS /dev/dsp interface.
 *
 * Description:	The venerable fallback for systems without PortAudio or a
 *		working ALSA.  Format, channel count and rate are
 *		negotiated with ioctls; the driver may pick a nearby rate,
 *		which is why SampleRate is only meaningful after Open.
 *		Writes to the device block at the hardware rate, which
 *		paces the generator.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const ossDefaultDevice = "/dev/dsp"

/* From <sys/soundcard.h>. */
const (
	sndctlDSPSetFmt   = 0xC0045005
	sndctlDSPChannels = 0xC0045006
	sndctlDSPSpeed    = 0xC0045002

	afmtS16LE = 0x00000010
)

// OSSSink plays samples through an OSS dsp device.
type OSSSink struct {
	rate int
	fd   int
	raw  []byte
}

// NewOSSSink returns an unopened OSS backend.
func NewOSSSink() *OSSSink {
	return &OSSSink{fd: -1}
}

func (s *OSSSink) Open(device string) error {
	if device == "" {
		device = ossDefaultDevice
	}

	var fd, openErr = unix.Open(device, unix.O_WRONLY, 0)
	if openErr != nil {
		return fmt.Errorf("open %s: %w", device, openErr)
	}

	var format = afmtS16LE
	if ioctlErr := ossIoctl(fd, sndctlDSPSetFmt, &format); ioctlErr != nil {
		_ = unix.Close(fd)

		return fmt.Errorf("%s set format: %w", device, ioctlErr)
	}
	if format != afmtS16LE {
		_ = unix.Close(fd)

		return fmt.Errorf("%s: signed 16 bit little endian not supported", device)
	}

	var channels = 1
	if ioctlErr := ossIoctl(fd, sndctlDSPChannels, &channels); ioctlErr != nil {
		_ = unix.Close(fd)

		return fmt.Errorf("%s set channels: %w", device, ioctlErr)
	}
	if channels != 1 {
		_ = unix.Close(fd)

		return fmt.Errorf("%s: mono not supported", device)
	}

	var rate = SampleRateDefault
	if ioctlErr := ossIoctl(fd, sndctlDSPSpeed, &rate); ioctlErr != nil {
		_ = unix.Close(fd)

		return fmt.Errorf("%s set rate: %w", device, ioctlErr)
	}
	if rate <= 0 {
		_ = unix.Close(fd)

		return fmt.Errorf("%s: driver negotiated rate %d", device, rate)
	}
	if rate != SampleRateDefault {
		logger.Info("OSS driver adjusted sample rate", "requested", SampleRateDefault, "got", rate)
	}

	s.fd = fd
	s.rate = rate

	return nil
}

func (s *OSSSink) Close() error {
	if s.fd < 0 {
		return nil
	}

	var closeErr = unix.Close(s.fd)
	s.fd = -1

	return closeErr
}

func (s *OSSSink) Write(samples []int16) error {
	if need := len(samples) * 2; cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	s.raw = s.raw[:len(samples)*2]

	for i, sample := range samples {
		binary.LittleEndian.PutUint16(s.raw[i*2:], uint16(sample))
	}

	for off := 0; off < len(s.raw); {
		var n, writeErr = unix.Write(s.fd, s.raw[off:])
		if writeErr != nil {
			return writeErr
		}
		off += n
	}

	return nil
}

func (s *OSSSink) SampleRate() int {
	return s.rate
}

func ossIoctl(fd int, req uint, arg *int) error {
	var v = int32(*arg)
	var _, _, errno = unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(unsafe.Pointer(&v)))
	if errno != 0 {
		return errno
	}
	*arg = int(v)

	return nil
}
