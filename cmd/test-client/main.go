package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var client = &http.Client{Timeout: 30 * time.Second}

var samples = []string{
	"I am so happy and excited about this!",
	"I feel really lonely and sad today.",
	"This is absolutely frustrating, I am so angry.",
	"I'm not happy at all.",
	"What? I'm totally confused right now.",
}

func getJSON(url string) (map[string]interface{}, int, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	return decode(resp)
}

func postJSON(url string, payload interface{}) (map[string]interface{}, int, error) {
	data, _ := json.Marshal(payload)
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	return decode(resp)
}

func decode(resp *http.Response) (map[string]interface{}, int, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("parse %q: %v", string(body), err)
	}
	return out, resp.StatusCode, nil
}

// Проверка состояния
func testHealth(base string) error {
	fmt.Println("\n[TEST] Testing /health...")
	out, status, err := getJSON(base + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %v", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", status)
	}
	fmt.Printf("✓ Health: %v (database=%v, face_classifier=%v)\n", out["status"], out["database"], out["face_classifier"])
	return nil
}

// Проверка детекции текста
func testDetectText(base string) error {
	fmt.Println("\n[TEST] Testing /api/detect...")
	for _, text := range samples {
		out, status, err := postJSON(base+"/api/detect", map[string]string{"text": text})
		if err != nil {
			return fmt.Errorf("detect failed: %v", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("detect failed: status %d, body: %v", status, out)
		}
		fmt.Printf("✓ %-50q -> %v (%.1f%%)\n", text, out["emotion"], out["confidence"].(float64)*100)
	}

	out, status, err := postJSON(base+"/api/detect", map[string]string{"text": "   "})
	if err != nil {
		return err
	}
	if status != http.StatusBadRequest {
		return fmt.Errorf("blank text: want 400, got %d", status)
	}
	fmt.Printf("✓ Blank text rejected: %v\n", out["error"])
	return nil
}

func generateTestImage() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Проверка детекции лица
func testDetectFace(base string, imagePath string) error {
	fmt.Println("\n[TEST] Testing /api/detect-face...")

	var data []byte
	var err error
	if imagePath != "" {
		data, err = os.ReadFile(imagePath)
	} else {
		data, err = generateTestImage()
	}
	if err != nil {
		return fmt.Errorf("load image: %v", err)
	}

	encoded := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
	out, status, err := postJSON(base+"/api/detect-face", map[string]string{"image": encoded})
	if err != nil {
		return fmt.Errorf("face request failed: %v", err)
	}

	switch status {
	case http.StatusOK:
		fmt.Printf("✓ Face: %v (%.1f%%), faces=%v, method=%v\n",
			out["emotion"], out["confidence"].(float64)*100, out["faces_detected"], out["method"])
	case http.StatusBadRequest:
		// a synthetic gradient has no face in it
		fmt.Printf("⚠ %v: %v\n", out["error"], out["message"])
		if tip, ok := out["tip"]; ok {
			fmt.Printf("  tip: %v\n", tip)
		}
	default:
		return fmt.Errorf("face detection failed: status %d, body: %v", status, out)
	}
	return nil
}

func testHistory(base string) error {
	fmt.Println("\n[TEST] Testing /api/history...")
	out, status, err := getJSON(base + "/api/history?limit=5")
	if err != nil || status != http.StatusOK {
		return fmt.Errorf("history failed: status %d, err %v", status, err)
	}
	hist, _ := out["history"].([]interface{})
	fmt.Printf("✓ Retrieved %d history entries\n", len(hist))
	return nil
}

func testStats(base string) error {
	fmt.Println("\n[TEST] Testing /api/stats...")
	out, status, err := getJSON(base + "/api/stats")
	if err != nil || status != http.StatusOK {
		return fmt.Errorf("stats failed: status %d, err %v", status, err)
	}
	stats, _ := out["stats"].(map[string]interface{})
	fmt.Printf("✓ Total detections: %v\n", stats["total"])
	return nil
}

func testWebSocket(base string) error {
	fmt.Println("\n[TEST] Testing /ws...")
	url := "ws" + strings.TrimPrefix(base, "http") + "/ws?clientId=test-client"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %v", err)
	}
	defer conn.Close()

	read := func() (map[string]interface{}, error) {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var msg map[string]interface{}
		err := conn.ReadJSON(&msg)
		return msg, err
	}

	msg, err := read()
	if err != nil {
		return err
	}
	fmt.Printf("✓ %v received\n", msg["type"])

	if err := conn.WriteJSON(map[string]interface{}{
		"type":    "DETECT_TEXT",
		"payload": map[string]string{"text": "I'm thrilled this works"},
	}); err != nil {
		return err
	}
	msg, err = read()
	if err != nil {
		return err
	}
	if msg["type"] != "DETECTION_RESULT" {
		return fmt.Errorf("unexpected reply %v", msg)
	}
	payload, _ := msg["payload"].(map[string]interface{})
	fmt.Printf("✓ DETECTION_RESULT: %v\n", payload["emotion"])
	return nil
}

func main() {
	base := flag.String("url", "http://localhost:8080", "backend base URL")
	imagePath := flag.String("image", "", "JPEG or PNG with a face (default: synthetic image)")
	flag.Parse()

	fmt.Println(strings.Repeat("=", 61))
	fmt.Println("AI EMOTION DETECTION - Backend Testing Client")
	fmt.Println(strings.Repeat("=", 61))
	fmt.Println("\n[INFO] Target:", *base)

	tests := []struct {
		name string
		fn   func(string) error
	}{
		{"Health Check", testHealth},
		{"Text Detection", testDetectText},
		{"Face Detection", func(b string) error { return testDetectFace(b, *imagePath) }},
		{"History", testHistory},
		{"Statistics", testStats},
		{"WebSocket", testWebSocket},
	}

	for _, test := range tests {
		if err := test.fn(*base); err != nil {
			log.Printf("❌ %s failed: %v", test.name, err)
			os.Exit(1)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 61))
	fmt.Println("✅ All tests completed successfully!")
	fmt.Println(strings.Repeat("=", 61))
}
