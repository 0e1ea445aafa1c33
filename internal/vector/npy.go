package vector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// NumPy .npy format, version 1.0, little-endian float32, C order.
const (
	npyMagic      = "\x93NUMPY"
	npyAlignment  = 64
	npyDescrFloat = "<f4"
)

var (
	npyDescrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	npyFortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// writeNPY writes a rows x cols float32 matrix stored row-major in data.
func writeNPY(w io.Writer, rows, cols int, data []float32) error {
	if len(data) != rows*cols {
		return fmt.Errorf("npy: data length %d does not match shape (%d, %d)", len(data), rows, cols)
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%d, %d), }", npyDescrFloat, rows, cols)
	total := len(npyMagic) + 2 + 2 + len(header) + 1
	if pad := (npyAlignment - total%npyAlignment) % npyAlignment; pad > 0 {
		header += strings.Repeat(" ", pad)
	}
	header += "\n"
	if len(header) > math.MaxUint16 {
		return fmt.Errorf("npy: header too long (%d bytes)", len(header))
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(npyMagic); err != nil {
		return fmt.Errorf("npy: write magic: %w", err)
	}
	if _, err := bw.Write([]byte{1, 0}); err != nil {
		return fmt.Errorf("npy: write version: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint16(len(header))); err != nil {
		return fmt.Errorf("npy: write header length: %w", err)
	}
	if _, err := bw.WriteString(header); err != nil {
		return fmt.Errorf("npy: write header: %w", err)
	}
	if _, err := bw.Write(float32SliceToBytes(data)); err != nil {
		return fmt.Errorf("npy: write data: %w", err)
	}
	return bw.Flush()
}

// readNPY reads a float32 matrix. A 1-D array is read as a single row. size is the total
// length of the input when known, or -1; the data length implied by the header is checked
// against it before allocating.
func readNPY(r io.Reader, size int64) (rows, cols int, data []float32, err error) {
	br := bufio.NewReader(r)
	prefix := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(br, prefix); err != nil {
		return 0, 0, nil, fmt.Errorf("npy: read magic: %w", err)
	}
	if string(prefix[:len(npyMagic)]) != npyMagic {
		return 0, 0, nil, fmt.Errorf("npy: bad magic")
	}

	var headerLen int
	offset := int64(len(prefix))
	switch major := prefix[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return 0, 0, nil, fmt.Errorf("npy: read header length: %w", err)
		}
		headerLen = int(n)
		offset += 2
	case 2, 3:
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return 0, 0, nil, fmt.Errorf("npy: read header length: %w", err)
		}
		headerLen = int(n)
		offset += 4
	default:
		return 0, 0, nil, fmt.Errorf("npy: unsupported version %d", major)
	}

	if size >= 0 && int64(headerLen) > size-offset {
		return 0, 0, nil, fmt.Errorf("npy: header length %d exceeds file size", headerLen)
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return 0, 0, nil, fmt.Errorf("npy: read header: %w", err)
	}
	offset += int64(headerLen)
	rows, cols, err = parseNPYHeader(string(header))
	if err != nil {
		return 0, 0, nil, err
	}
	if cols <= 0 {
		return 0, 0, nil, fmt.Errorf("npy: zero-width matrix")
	}
	if rows > (math.MaxInt/4)/cols {
		return 0, 0, nil, fmt.Errorf("npy: shape (%d, %d) too large", rows, cols)
	}
	n := int64(rows) * int64(cols) * 4
	if size >= 0 && n != size-offset {
		return 0, 0, nil, fmt.Errorf("npy: shape (%d, %d) needs %d data bytes, file has %d", rows, cols, n, size-offset)
	}

	var raw []byte
	if size >= 0 {
		raw = make([]byte, n)
		if _, err := io.ReadFull(br, raw); err != nil {
			return 0, 0, nil, fmt.Errorf("npy: read data: %w", err)
		}
	} else {
		// Unknown length: grow with the data actually present.
		var buf bytes.Buffer
		if _, err := io.CopyN(&buf, br, n); err != nil {
			return 0, 0, nil, fmt.Errorf("npy: read data: %w", err)
		}
		raw = buf.Bytes()
	}
	return rows, cols, bytesToFloat32Slice(raw), nil
}

func parseNPYHeader(header string) (rows, cols int, err error) {
	m := npyDescrRe.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, fmt.Errorf("npy: header missing descr")
	}
	if m[1] != npyDescrFloat {
		return 0, 0, fmt.Errorf("npy: unsupported dtype %q", m[1])
	}
	m = npyFortranRe.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, fmt.Errorf("npy: header missing fortran_order")
	}
	if m[1] == "True" {
		return 0, 0, fmt.Errorf("npy: fortran order not supported")
	}
	m = npyShapeRe.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, fmt.Errorf("npy: header missing shape")
	}

	var dims []int
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("npy: bad shape %q", m[1])
		}
		dims = append(dims, n)
	}
	switch len(dims) {
	case 1:
		return 1, dims[0], nil
	case 2:
		return dims[0], dims[1], nil
	default:
		return 0, 0, fmt.Errorf("npy: expected 2-D array, got shape (%s)", m[1])
	}
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
