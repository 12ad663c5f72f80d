package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

var (
	errInvalidVersion  = errors.New("glTF version must be 2.x")
	errInvalidGLB      = errors.New("invalid GLB container")
	errAccessorRange   = errors.New("accessor out of range")
	errAccessorType    = errors.New("unexpected accessor type")
	errUnsupportedData = errors.New("unsupported glTF data")
)

// gltfParser holds a decoded document with its buffers loaded.
type gltfParser struct {
	baseDir string
	doc     *gltfDocument
}

// parseGLTF decodes a .gltf JSON document or a .glb container. External buffers resolve
// against baseDir. A GLB is recognized by its magic even when isGLB is false.
func parseGLTF(data []byte, baseDir string, isGLB bool) (*gltfParser, error) {
	p := &gltfParser{baseDir: baseDir}

	jsonData, bin := data, []byte(nil)
	if isGLB || len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic {
		var err error
		if jsonData, bin, err = splitGLB(data); err != nil {
			return nil, err
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("decode glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, fmt.Errorf("%w: got %q", errInvalidVersion, doc.Asset.Version)
	}
	if len(doc.ExtensionsRequired) > 0 {
		return nil, fmt.Errorf("%w: required extensions %v", errUnsupportedData, doc.ExtensionsRequired)
	}
	p.doc = &doc

	if err := p.loadBuffers(bin); err != nil {
		return nil, err
	}
	return p, nil
}

// splitGLB returns the JSON and BIN chunks of a GLB container.
func splitGLB(data []byte) ([]byte, []byte, error) {
	r := bytes.NewReader(data)
	var h glbHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errInvalidGLB, err)
	}
	if h.Magic != glbMagic || h.Version != glbVersion {
		return nil, nil, fmt.Errorf("%w: magic %#x version %d", errInvalidGLB, h.Magic, h.Version)
	}

	var jsonData, bin []byte
	for {
		var ch glbChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("%w: chunk header: %v", errInvalidGLB, err)
		}
		if int64(ch.Length) > int64(r.Len()) {
			return nil, nil, fmt.Errorf("%w: chunk of %d bytes overruns the file", errInvalidGLB, ch.Length)
		}
		chunk := make([]byte, ch.Length)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, nil, fmt.Errorf("%w: chunk data: %v", errInvalidGLB, err)
		}
		switch ch.Type {
		case glbChunkJSON:
			jsonData = chunk
		case glbChunkBIN:
			bin = chunk
		}
	}
	if jsonData == nil {
		return nil, nil, fmt.Errorf("%w: no JSON chunk", errInvalidGLB)
	}
	return jsonData, bin, nil
}

// loadBuffers resolves every buffer. Only buffer 0 of a GLB may omit its URI.
func (p *gltfParser) loadBuffers(bin []byte) error {
	for i := range p.doc.Buffers {
		buf := &p.doc.Buffers[i]
		switch {
		case buf.URI != "":
			data, err := p.loadURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.data = data
		case i == 0 && bin != nil:
			buf.data = bin
		default:
			return fmt.Errorf("buffer %d: %w: no URI and no GLB binary chunk", i, errUnsupportedData)
		}
		if len(buf.data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: holds %d of %d bytes", i, len(buf.data), buf.ByteLength)
		}
	}
	return nil
}

// loadURI reads a base64 data URI or a file relative to the document.
func (p *gltfParser) loadURI(uri string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(uri, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("%w: data URI must be base64", errUnsupportedData)
		}
		return base64.StdEncoding.DecodeString(payload)
	}
	if p.baseDir == "" {
		return nil, fmt.Errorf("%w: external URI %q without a base directory", errUnsupportedData, uri)
	}
	return os.ReadFile(filepath.Join(p.baseDir, filepath.FromSlash(uri)))
}

// bufferView returns the bytes of a buffer view.
func (p *gltfParser) bufferView(index int) ([]byte, error) {
	if index < 0 || index >= len(p.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d: %w", index, errAccessorRange)
	}
	bv := p.doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(p.doc.Buffers) {
		return nil, fmt.Errorf("buffer view %d: buffer %d: %w", index, bv.Buffer, errAccessorRange)
	}
	data := p.doc.Buffers[bv.Buffer].data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(data) {
		return nil, fmt.Errorf("buffer view %d: bytes %d..%d of %d: %w", index, bv.ByteOffset, end, len(data), errAccessorRange)
	}
	return data[bv.ByteOffset:end], nil
}

// accessorElements returns one tightly packed byte slice per element of an accessor.
func (p *gltfParser) accessorElements(index int) (*gltfAccessor, [][]byte, error) {
	if index < 0 || index >= len(p.doc.Accessors) {
		return nil, nil, fmt.Errorf("accessor %d: %w", index, errAccessorRange)
	}
	acc := &p.doc.Accessors[index]
	if acc.Sparse != nil {
		return nil, nil, fmt.Errorf("accessor %d: %w: sparse", index, errUnsupportedData)
	}
	if acc.BufferView == nil {
		return nil, nil, fmt.Errorf("accessor %d: %w: no buffer view", index, errUnsupportedData)
	}
	view, err := p.bufferView(*acc.BufferView)
	if err != nil {
		return nil, nil, fmt.Errorf("accessor %d: %w", index, err)
	}

	size := gltfComponentSize(acc.ComponentType) * gltfTypeComponents[acc.Type]
	if size == 0 {
		return nil, nil, fmt.Errorf("accessor %d: %w: %s of component %d", index, errAccessorType, acc.Type, acc.ComponentType)
	}
	stride := size
	if bv := p.doc.BufferViews[*acc.BufferView]; bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	if acc.Count > 0 && acc.ByteOffset+(acc.Count-1)*stride+size > len(view) {
		return nil, nil, fmt.Errorf("accessor %d: %d elements overrun the buffer view: %w", index, acc.Count, errAccessorRange)
	}

	out := make([][]byte, acc.Count)
	for i := range out {
		off := acc.ByteOffset + i*stride
		out[i] = view[off : off+size]
	}
	return acc, out, nil
}

// readFloats reads an accessor of the given type as float32 components, converting normalized
// integer components to [0, 1] or [-1, 1].
func (p *gltfParser) readFloats(index int, accessorType string) ([]float32, error) {
	acc, elems, err := p.accessorElements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != accessorType {
		return nil, fmt.Errorf("accessor %d: %w: want %s, got %s", index, errAccessorType, accessorType, acc.Type)
	}
	if acc.ComponentType != gltfFloat && !acc.Normalized {
		return nil, fmt.Errorf("accessor %d: %w: component %d is not float or normalized", index, errAccessorType, acc.ComponentType)
	}

	n := gltfTypeComponents[accessorType]
	cs := gltfComponentSize(acc.ComponentType)
	out := make([]float32, 0, len(elems)*n)
	for _, e := range elems {
		for c := range n {
			b := e[c*cs:]
			var v float32
			switch acc.ComponentType {
			case gltfFloat:
				v = math.Float32frombits(binary.LittleEndian.Uint32(b))
			case gltfUnsignedByte:
				v = float32(b[0]) / 255
			case gltfUnsignedShort:
				v = float32(binary.LittleEndian.Uint16(b)) / 65535
			case gltfByte:
				v = max(float32(int8(b[0]))/127, -1)
			case gltfShort:
				v = max(float32(int16(binary.LittleEndian.Uint16(b)))/32767, -1)
			default:
				return nil, fmt.Errorf("accessor %d: %w: component %d", index, errAccessorType, acc.ComponentType)
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// readIndices reads a SCALAR accessor of unsigned bytes, shorts or ints.
func (p *gltfParser) readIndices(index int) ([]uint32, error) {
	acc, elems, err := p.accessorElements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != "SCALAR" {
		return nil, fmt.Errorf("accessor %d: %w: indices must be SCALAR, got %s", index, errAccessorType, acc.Type)
	}
	out := make([]uint32, len(elems))
	for i, e := range elems {
		switch acc.ComponentType {
		case gltfUnsignedByte:
			out[i] = uint32(e[0])
		case gltfUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(e))
		case gltfUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(e)
		default:
			return nil, fmt.Errorf("accessor %d: %w: index component %d", index, errAccessorType, acc.ComponentType)
		}
	}
	return out, nil
}
