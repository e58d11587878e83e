package handlers

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"emotion-detector/internal/services"
)

const EmotionDetectionService = "emotion.v1.EmotionDetection"

// EmotionDetectionServer is the gRPC surface. Requests and replies are
// structpb.Struct values carrying the same fields as the JSON API.
type EmotionDetectionServer interface {
	DetectText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DetectFace(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterEmotionDetectionServer(s grpc.ServiceRegistrar, srv EmotionDetectionServer) {
	s.RegisterService(&emotionDetectionDesc, srv)
}

func unaryHandler(method string, call func(EmotionDetectionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + EmotionDetectionService + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EmotionDetectionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(EmotionDetectionServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var emotionDetectionDesc = grpc.ServiceDesc{
	ServiceName: EmotionDetectionService,
	HandlerType: (*EmotionDetectionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "DetectText", Handler: unaryHandler("DetectText", EmotionDetectionServer.DetectText)},
		{MethodName: "DetectFace", Handler: unaryHandler("DetectFace", EmotionDetectionServer.DetectFace)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "emotion/v1/emotion.proto",
}

type GRPCHandler struct {
	detector *services.Detector
	log      *zap.Logger
}

func NewGRPCHandler(detector *services.Detector, log *zap.Logger) *GRPCHandler {
	return &GRPCHandler{detector: detector, log: log}
}

func stringField(req *structpb.Struct, name string) (string, bool) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", false
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}
	return s.StringValue, true
}

func scoresValue(m map[string]float64) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (h *GRPCHandler) DetectText(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	text, ok := stringField(req, "text")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "text is required")
	}

	det, err := h.detector.DetectText(ctx, text)
	switch {
	case errors.Is(err, services.ErrEmptyText), errors.Is(err, services.ErrTextTooLong):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case err != nil:
		h.log.Error("grpc text detection failed", zap.Error(err))
		return nil, status.Error(codes.Internal, "processing failed")
	}

	resp := textResponse(det)
	return structpb.NewStruct(map[string]interface{}{
		"emotion":      resp.Emotion,
		"confidence":   resp.Confidence,
		"all_emotions": scoresValue(resp.AllEmotions),
		"sentiment": map[string]interface{}{
			"polarity":     resp.Sentiment.Polarity,
			"subjectivity": resp.Sentiment.Subjectivity,
		},
		"text_length": resp.TextLength,
		"timestamp":   resp.Timestamp.Format(time.RFC3339Nano),
	})
}

func (h *GRPCHandler) DetectFace(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	img, ok := stringField(req, "image")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "image is required")
	}

	det, err := h.detector.DetectFace(ctx, img)
	if err != nil {
		var ff *services.FaceFailure
		switch {
		case errors.Is(err, services.ErrInvalidImage):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.As(err, &ff):
			return nil, status.Error(codes.FailedPrecondition, ff.Message)
		default:
			h.log.Error("grpc face detection failed", zap.Error(err))
			return nil, status.Error(codes.Internal, "processing failed")
		}
	}

	resp := faceResponse(det)
	return structpb.NewStruct(map[string]interface{}{
		"emotion":        resp.Emotion,
		"confidence":     resp.Confidence,
		"all_emotions":   scoresValue(resp.AllEmotions),
		"faces_detected": resp.FacesDetected,
		"method":         resp.Method,
		"timestamp":      resp.Timestamp.Format(time.RFC3339Nano),
	})
}

// UnaryLogger logs every unary call with its code and latency.
func UnaryLogger(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Info("grpc call",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)))
		return resp, err
	}
}
