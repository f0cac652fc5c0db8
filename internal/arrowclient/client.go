// Package arrowclient exports computed context vectors to a Longbow vector
// store over Apache Arrow Flight.
package arrowclient

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/23skdu/longbow-bodkin/internal/metrics"
	"github.com/23skdu/longbow-bodkin/internal/tensor"
)

// DefaultPort is the Longbow Flight data port
const DefaultPort = 3000

// ContextBatch is a set of H-wide context vectors plus the sequence
// positions they were computed at, flattened over (batch, seq).
type ContextBatch struct {
	Sequence  string
	Vectors   [][]float32
	Positions []int32
}

// FromOutput flattens a (B,T,H) attention output into a ContextBatch
func FromOutput(out *tensor.Tensor, sequence string) (*ContextBatch, error) {
	if out == nil || out.Rank() != 3 {
		return nil, fmt.Errorf("expected 3D output tensor")
	}
	batch, seqLen := out.Dim(0), out.Dim(1)
	cb := &ContextBatch{
		Sequence:  sequence,
		Vectors:   make([][]float32, 0, batch*seqLen),
		Positions: make([]int32, 0, batch*seqLen),
	}
	for b := 0; b < batch; b++ {
		for t := 0; t < seqLen; t++ {
			row := out.Row(b, t)
			vec := make([]float32, len(row))
			copy(vec, row)
			cb.Vectors = append(cb.Vectors, vec)
			cb.Positions = append(cb.Positions, int32(t))
		}
	}
	return cb, nil
}

// Client is the transport interface, satisfied by FlightClient and the mock
type Client interface {
	Connect(ctx context.Context) error
	Close() error
	PutContexts(ctx context.Context, batch *ContextBatch) error
}

// FlightClient wraps Apache Arrow Flight for context vector transport
type FlightClient struct {
	client  flight.Client
	addr    string
	timeout time.Duration
}

// NewFlightClient creates a client for the given Longbow address
func NewFlightClient(host string, port int) *FlightClient {
	if port <= 0 {
		port = DefaultPort
	}
	return &FlightClient{
		addr:    fmt.Sprintf("%s:%d", host, port),
		timeout: 30 * time.Second,
	}
}

// Connect establishes the gRPC connection to the Flight server
func (fc *FlightClient) Connect(ctx context.Context) error {
	client, err := flight.NewClientWithMiddleware(fc.addr, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to create Flight client: %w", err)
	}
	fc.client = client
	return nil
}

// Close disconnects from the Flight server
func (fc *FlightClient) Close() error {
	if fc.client != nil {
		return fc.client.Close()
	}
	return nil
}

// PutContexts sends a batch of context vectors via DoPut. The record has a
// fixed-size-list<float32> context column and an int32 position column.
func (fc *FlightClient) PutContexts(ctx context.Context, batch *ContextBatch) (err error) {
	defer func() { metrics.RecordLongbowPut(err) }()

	if fc.client == nil {
		return fmt.Errorf("client not connected, call Connect() first")
	}
	if batch == nil || len(batch.Vectors) == 0 {
		return fmt.Errorf("no vectors provided")
	}
	width := len(batch.Vectors[0])
	if len(batch.Positions) != len(batch.Vectors) {
		return fmt.Errorf("positions length %d does not match vectors %d",
			len(batch.Positions), len(batch.Vectors))
	}

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "context", Type: arrow.FixedSizeListOf(int32(width), arrow.PrimitiveTypes.Float32)},
		{Name: "position", Type: arrow.PrimitiveTypes.Int32},
	}, nil)

	rb := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer rb.Release()

	listBuilder := rb.Field(0).(*array.FixedSizeListBuilder)
	valueBuilder := listBuilder.ValueBuilder().(*array.Float32Builder)
	for _, vec := range batch.Vectors {
		if len(vec) != width {
			return fmt.Errorf("ragged vectors: got width %d, want %d", len(vec), width)
		}
		listBuilder.Append(true)
		valueBuilder.AppendValues(vec, nil)
	}
	rb.Field(1).(*array.Int32Builder).AppendValues(batch.Positions, nil)

	rec := rb.NewRecord()
	defer rec.Release()

	ctx, cancel := context.WithTimeout(ctx, fc.timeout)
	defer cancel()

	stream, err := fc.client.DoPut(ctx)
	if err != nil {
		return fmt.Errorf("failed to open DoPut stream: %w", err)
	}

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(schema))
	writer.SetFlightDescriptor(&flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{"contexts", batch.Sequence},
	})
	if err = writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err = writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	if err = stream.CloseSend(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}

	// Drain server acks
	for {
		if _, rerr := stream.Recv(); rerr != nil {
			if rerr == io.EOF {
				break
			}
			err = fmt.Errorf("put result: %w", rerr)
			return err
		}
	}
	return nil
}
