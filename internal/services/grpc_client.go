package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// AnalyzeMethod is the unary method served by the facial expression model.
const AnalyzeMethod = "/emotion.v1.FaceAnalyzer/Analyze"

// GRPCFaceClassifier calls the model service over gRPC using structpb
// messages: {"image": base64} in, {"emotions", "dominant_emotion",
// "faces_detected", "method"} out.
type GRPCFaceClassifier struct {
	conn    *grpc.ClientConn
	health  healthpb.HealthClient
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	url     string
	log     *zap.Logger
}

func NewGRPCFaceClassifier(url string, timeout time.Duration, breaker BreakerSettings, log *zap.Logger, extra ...grpc.DialOption) (*GRPCFaceClassifier, error) {
	log.Info("connecting to face classifier", zap.String("addr", url))

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(50*1024*1024),
			grpc.MaxCallSendMsgSize(50*1024*1024),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             3 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not connect to face classifier at %s: %w", url, err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if breaker.Name == "" {
		breaker.Name = "face-classifier-grpc"
	}

	return &GRPCFaceClassifier{
		conn:    conn,
		health:  healthpb.NewHealthClient(conn),
		cb:      newBreaker(breaker, log),
		timeout: timeout,
		url:     url,
		log:     log,
	}, nil
}

func (gc *GRPCFaceClassifier) Analyze(ctx context.Context, img []byte) (*FaceAnalysis, error) {
	return execute(gc.cb, func() (*FaceAnalysis, error) {
		ctx, cancel := context.WithTimeout(ctx, gc.timeout)
		defer cancel()

		req, err := structpb.NewStruct(map[string]interface{}{
			"image": base64.StdEncoding.EncodeToString(img),
		})
		if err != nil {
			return nil, err
		}
		resp := &structpb.Struct{}
		if err := gc.conn.Invoke(ctx, AnalyzeMethod, req, resp); err != nil {
			return nil, classifierError(err)
		}
		return analysisFromStruct(resp)
	})
}

func classifierError(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNoFaceDetected, status.Convert(err).Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidImage, status.Convert(err).Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	default:
		return fmt.Errorf("face classifier: %w", err)
	}
}

func analysisFromStruct(s *structpb.Struct) (*FaceAnalysis, error) {
	fields := s.GetFields()
	out := &FaceAnalysis{
		Dominant:      fields["dominant_emotion"].GetStringValue(),
		Method:        fields["method"].GetStringValue(),
		FacesDetected: int(fields["faces_detected"].GetNumberValue()),
		Scores:        map[string]float64{},
	}
	emotions := fields["emotions"].GetStructValue()
	if emotions == nil {
		return nil, fmt.Errorf("face classifier: response has no emotions")
	}
	for k, v := range emotions.GetFields() {
		out.Scores[k] = v.GetNumberValue()
	}
	return out, nil
}

// Ping runs the standard gRPC health check against the model service.
func (gc *GRPCFaceClassifier) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp, err := gc.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: status %s", ErrClassifierUnavailable, resp.GetStatus())
	}
	return nil
}

func (gc *GRPCFaceClassifier) Close() error {
	if gc.conn != nil {
		return gc.conn.Close()
	}
	return nil
}
