package stemmix

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// WavDecoder decodes RIFF wav resources (16-bit PCM or 32-bit IEEE
// float) into AudioBuffers. It is the Decoder used for catalog stems.
type WavDecoder struct{}

func (WavDecoder) Decode(raw []byte) (*AudioBuffer, error) {
	return ParseWav(raw)
}

// Wav encodes the buffer as a .wav file. If pcm16 is true the samples
// are converted to 16-bit signed PCM; otherwise they are stored as
// 32-bit IEEE floats.
func (b *AudioBuffer) Wav(pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	wavHeader(len(b.Samples), b.Channels, b.SampleRate, pcm16, buf)
	err := rawToBuffer(b.Samples, pcm16, buf)
	if err != nil {
		return nil, fmt.Errorf("Wav failed: %v", err)
	}
	return buf.Bytes(), nil
}

// Raw encodes just the sample data, little-endian, without a header.
func (b *AudioBuffer) Raw(pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := rawToBuffer(b.Samples, pcm16, buf)
	if err != nil {
		return nil, fmt.Errorf("Raw failed: %v", err)
	}
	return buf.Bytes(), nil
}

func rawToBuffer(data []float32, pcm16 bool, buf *bytes.Buffer) error {
	var err error
	if pcm16 {
		int16data := make([]int16, len(data))
		for i, v := range data {
			int16data[i] = int16(clamp(int(v*math.MaxInt16), math.MinInt16, math.MaxInt16))
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, data)
	}
	if err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %v", err)
	}
	return nil
}

// wavHeader writes a wave header for either float32 or int16 .wav file
// into the bytes.Buffer. bufferLength is the total number of samples
// over all channels. pcm16 = true means the header is for int16 audio;
// pcm16 = false means the header is for float32 audio.
func wavHeader(bufferLength, numChannels, sampleRate int, pcm16 bool, buf *bytes.Buffer) {
	// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	var bytesPerSample, chunkSize, fmtChunkSize, waveFormat int
	var factChunk bool
	if pcm16 {
		bytesPerSample = 2
		chunkSize = 36 + bytesPerSample*bufferLength
		fmtChunkSize = 16
		waveFormat = 1 // PCM
		factChunk = false
	} else {
		bytesPerSample = 4
		chunkSize = 50 + bytesPerSample*bufferLength
		fmtChunkSize = 18
		waveFormat = 3 // IEEE float
		factChunk = true
	}
	buf.Write([]byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(chunkSize))
	buf.Write([]byte("WAVE"))
	buf.Write([]byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, uint16(waveFormat))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*bytesPerSample))            // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(8*bytesPerSample))                      // bits per sample
	if fmtChunkSize > 16 {
		binary.Write(buf, binary.LittleEndian, uint16(0)) // size of extension
	}
	if factChunk {
		buf.Write([]byte("fact"))
		binary.Write(buf, binary.LittleEndian, uint32(4))                        // fact chunk size
		binary.Write(buf, binary.LittleEndian, uint32(bufferLength/numChannels)) // sample length per channel
	}
	buf.Write([]byte("data"))
	binary.Write(buf, binary.LittleEndian, uint32(bytesPerSample*bufferLength))
}

// ParseWav decodes a RIFF wav file. Only uncompressed 16-bit PCM and
// 32-bit IEEE float data are supported, which covers what Wav itself
// produces and what stem separators typically emit.
func ParseWav(data []byte) (*AudioBuffer, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF wave file")
	}
	var (
		waveFormat    int
		numChannels   int
		sampleRate    int
		bitsPerSample int
		sampleData    []byte
		fmtSeen       bool
		dataSeen      bool
	)
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			return nil, fmt.Errorf("chunk %q overruns file", id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			waveFormat = int(binary.LittleEndian.Uint16(data[body : body+2]))
			numChannels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			fmtSeen = true
		case "data":
			sampleData = data[body : body+size]
			dataSeen = true
		}
		pos = body + size
		if size%2 == 1 {
			pos++ // chunks are word aligned
		}
	}
	if !fmtSeen || !dataSeen {
		return nil, fmt.Errorf("missing fmt or data chunk")
	}
	if numChannels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", numChannels)
	}
	buffer := &AudioBuffer{SampleRate: sampleRate, Channels: numChannels}
	switch {
	case waveFormat == 1 && bitsPerSample == 16:
		n := len(sampleData) / 2
		buffer.Samples = make([]float32, n)
		for i := 0; i < n; i++ {
			v := int16(binary.LittleEndian.Uint16(sampleData[2*i : 2*i+2]))
			buffer.Samples[i] = float32(v) / math.MaxInt16
		}
	case waveFormat == 3 && bitsPerSample == 32:
		n := len(sampleData) / 4
		buffer.Samples = make([]float32, n)
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(sampleData[4*i : 4*i+4])
			buffer.Samples[i] = math.Float32frombits(bits)
		}
	default:
		return nil, fmt.Errorf("unsupported wave format %d (%d bits)", waveFormat, bitsPerSample)
	}
	// trim a possible padding sample from an odd-length 16-bit mono file
	buffer.Samples = buffer.Samples[:buffer.Frames()*numChannels]
	return buffer, nil
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
