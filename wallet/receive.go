package wallet

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// receiveQRSize is the pixel width of the persisted receive QR image.
const receiveQRSize = 256

// addressQRPNG renders an address as a QR code PNG at the given pixel size.
func addressQRPNG(address string, size int) ([]byte, error) {
	png, err := qrcode.Encode(address, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render address QR: %w", err)
	}
	return png, nil
}

// ShortAddress renders an address in the abbreviated 0x1234...abcd form.
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
