// Package export 敏感度曲面导出：CSV、JSON、YAML
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"gopkg.in/yaml.v2"
)

// Format 导出格式
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat 解析导出格式，yml 视为 yaml
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", domain.ErrInvalidConfig, s)
	}
}

// ContentType HTTP 响应类型
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case YAML:
		return "application/x-yaml"
	default:
		return "text/csv"
	}
}

var csvHeader = []string{"Spot", "Price", "Delta", "Gamma", "Theta", "Rho", "Vega"}

// WriteCSV 表头 Spot,Price,Delta,Gamma,Theta,Rho,Vega，数值保留 6 位小数
func WriteCSV(w io.Writer, points []domain.SurfacePoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			fixed(p.Spot), fixed(p.Price), fixed(p.Delta), fixed(p.Gamma),
			fixed(p.Theta), fixed(p.Rho), fixed(p.Vega),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fixed(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// WriteJSON 缩进 JSON 数组
func WriteJSON(w io.Writer, points []domain.SurfacePoint) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(points)
}

// WriteYAML YAML 序列
func WriteYAML(w io.Writer, points []domain.SurfacePoint) error {
	data, err := yaml.Marshal(points)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Write 按格式写出
func Write(w io.Writer, f Format, points []domain.SurfacePoint) error {
	switch f {
	case JSON:
		return WriteJSON(w, points)
	case YAML:
		return WriteYAML(w, points)
	default:
		return WriteCSV(w, points)
	}
}

// WriteFile 写入 dir/name.<format>，目录不存在时创建
func WriteFile(dir, name string, f Format, points []domain.SurfacePoint) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+"."+string(f))
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := Write(file, f, points); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, file.Close()
}
