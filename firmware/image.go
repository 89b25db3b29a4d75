package firmware

import (
	"fmt"
	"hash/crc32"
	"os"
)

// Image is a firmware file with a located descriptor chain
type Image struct {
	data  []byte
	start int // offset of the OTUS descriptor
}

// ReadFile loads and parses a firmware file
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware: %w", err)
	}
	return Load(data)
}

// Load locates the descriptor chain in data. The chain starts with the
// first word aligned OTUS descriptor that has a valid header.
func Load(data []byte) (*Image, error) {
	for off := 0; off+HeadSize <= len(data); off += 4 {
		if Magic(data[off:off+4]) != MagicOTUS {
			continue
		}
		if _, err := parseHead(data, off); err != nil {
			continue
		}
		return &Image{data: data, start: off}, nil
	}
	return nil, ErrNoDescriptors
}

// Size returns the file size
func (img *Image) Size() int {
	return len(img.data)
}

// Code returns the firmware code in front of the descriptor chain
func (img *Image) Code() []byte {
	return img.data[:img.start]
}

// DescriptorOffset returns where the chain starts
func (img *Image) DescriptorOffset() int {
	return img.start
}

// Descriptors decodes the chain up to and including LAST, or until the
// remaining bytes no longer hold a valid header.
func (img *Image) Descriptors() []Descriptor {
	var descs []Descriptor
	for off := img.start; off < len(img.data); {
		h, err := parseHead(img.data, off)
		if err != nil {
			break
		}
		d := decode(h, img.data[off:off+int(h.Length)])
		descs = append(descs, d)
		if _, ok := d.(*Last); ok {
			break
		}
		off += int(h.Length)
	}
	return descs
}

// DescriptorBytes returns the total size of the decoded chain
func (img *Image) DescriptorBytes() int {
	n := 0
	for _, d := range img.Descriptors() {
		n += int(d.Header().Length)
	}
	return n
}

// Find returns the first descriptor with the given magic
func (img *Image) Find(m Magic) (Descriptor, bool) {
	for _, d := range img.Descriptors() {
		if d.Header().Magic == m {
			return d, true
		}
	}
	return nil, false
}

// VerifyChecksum checks the CHK descriptor. The header CRC covers the
// chain from its start up to the CHK block, the image CRC covers the code
// in front of the chain.
func (img *Image) VerifyChecksum() error {
	d, ok := img.Find(MagicChk)
	if !ok {
		return ErrNoChecksum
	}
	chk, ok := d.(*Checksum)
	if !ok {
		return fmt.Errorf("checksum descriptor unusable: %s", d.(*Unknown).Reason)
	}

	if got := crc32.ChecksumIEEE(img.data[img.start:chk.Offset]); got != chk.HeaderCRC {
		return fmt.Errorf("%w: got %08x, want %08x", ErrHeaderCRC, got, chk.HeaderCRC)
	}
	if got := crc32.ChecksumIEEE(img.Code()); got != chk.ImageCRC {
		return fmt.Errorf("%w: got %08x, want %08x", ErrImageCRC, got, chk.ImageCRC)
	}
	return nil
}
