//go:build !linux

package gpio

import "fmt"

func NewCdev(chip, consumer string) (Driver, error) {
	return nil, fmt.Errorf("gpio character device backend requires linux (chip %s)", chip)
}
