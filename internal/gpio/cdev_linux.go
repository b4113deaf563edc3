package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

type cdevLine struct {
	line   *gpiocdev.Line
	output bool
}

// Cdev drives lines through the GPIO character device. Lines are requested
// lazily and switched between input and output as they are used, which a
// shared wake/detect line needs.
type Cdev struct {
	chip  *gpiocdev.Chip
	mu    sync.Mutex
	lines map[uint32]*cdevLine
}

func NewCdev(chip, consumer string) (Driver, error) {
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", chip, err)
	}
	return &Cdev{chip: c, lines: make(map[uint32]*cdevLine)}, nil
}

func (d *Cdev) Write(pin uint32, high bool) error {
	v := 0
	if high {
		v = 1
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.lines[pin]
	if !ok {
		line, err := d.chip.RequestLine(int(pin), gpiocdev.AsOutput(v))
		if err != nil {
			return fmt.Errorf("failed to request line %d: %w", pin, err)
		}
		d.lines[pin] = &cdevLine{line: line, output: true}
		return nil
	}

	if !l.output {
		if err := l.line.Reconfigure(gpiocdev.AsOutput(v)); err != nil {
			return fmt.Errorf("failed to reconfigure line %d as output: %w", pin, err)
		}
		l.output = true
		return nil
	}

	return l.line.SetValue(v)
}

func (d *Cdev) Read(pin uint32) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.lines[pin]
	if !ok {
		line, err := d.chip.RequestLine(int(pin), gpiocdev.AsInput)
		if err != nil {
			return false, fmt.Errorf("failed to request line %d: %w", pin, err)
		}
		l = &cdevLine{line: line}
		d.lines[pin] = l
	} else if l.output {
		if err := l.line.Reconfigure(gpiocdev.AsInput); err != nil {
			return false, fmt.Errorf("failed to reconfigure line %d as input: %w", pin, err)
		}
		l.output = false
	}

	v, err := l.line.Value()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (d *Cdev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for pin, l := range d.lines {
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", pin, err))
		}
		delete(d.lines, pin)
	}
	if err := d.chip.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
