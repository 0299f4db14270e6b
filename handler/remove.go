package handler

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/j031nich0145/noBG/config"
	"github.com/j031nich0145/noBG/model"
	"github.com/j031nich0145/noBG/service"
	"github.com/j031nich0145/noBG/utils"
)

type RemoveHandler struct {
	cfg          *config.Config
	redisService *service.RedisService
	segmenter    *service.Segmenter
}

func NewRemoveHandler(cfg *config.Config, redis *service.RedisService, segmenter *service.Segmenter) *RemoveHandler {
	return &RemoveHandler{
		cfg:          cfg,
		redisService: redis,
		segmenter:    segmenter,
	}
}

// removeParams 单次请求的分割参数，在边界完成解析和兜底
type removeParams struct {
	threshold   float64
	method      service.Method
	largestOnly bool
}

func resolveParams(c *gin.Context) removeParams {
	return removeParams{
		threshold:   resolveThreshold(c.DefaultPostForm("threshold", "50")),
		method:      service.ResolveMethod(c.PostForm("method")),
		largestOnly: c.DefaultPostForm("largest_only", "false") == "true",
	}
}

// resolveThreshold 解析阈值，非法输入回退到50，结果截断到[0,100]
func resolveThreshold(raw string) float64 {
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(t) {
		return 50
	}
	return math.Max(0, math.Min(100, t))
}

func (p removeParams) cacheKey(md5 string) string {
	key := fmt.Sprintf("%s:%s:%s", md5, p.method, strconv.FormatFloat(p.threshold, 'f', -1, 64))
	if p.largestOnly {
		key += ":largest"
	}
	return key
}

// Health 健康检查
func (h *RemoveHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, model.HealthResponse{Status: "healthy", Service: "noBG"})
}

// Remove 处理单张图片，直接返回PNG
func (h *RemoveHandler) Remove(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "请上传图片文件",
			Error:   err.Error(),
		})
		return
	}

	if file.Size > h.cfg.Upload.MaxSize {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: fmt.Sprintf("文件大小超过限制 (%d MB)", h.cfg.Upload.MaxSize/(1024*1024)),
		})
		return
	}

	if contentType := file.Header.Get("Content-Type"); !h.isAllowedType(contentType) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "不支持的文件类型",
		})
		return
	}

	params := resolveParams(c)

	// 保存到上传目录，处理完成后删除
	filename := utils.GenerateID() + filepath.Ext(file.Filename)
	savePath := filepath.Join(h.cfg.Upload.UploadDir, filename)
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		utils.Logger.Error("failed to save file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "保存文件失败",
			Error:   err.Error(),
		})
		return
	}
	if h.cfg.Segment.CleanupTempFiles {
		defer func() {
			if err := os.Remove(savePath); err != nil {
				utils.Logger.Warn("failed to delete temp file",
					zap.String("file", savePath), zap.Error(err))
			}
		}()
	}

	if err := h.precheckFile(savePath); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "无法解码的图片文件",
			Error:   err.Error(),
		})
		return
	}

	md5, err := utils.FileMD5(savePath)
	if err != nil {
		utils.Logger.Error("failed to calculate md5", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "计算文件哈希失败",
			Error:   err.Error(),
		})
		return
	}

	utils.Logger.Info("file uploaded",
		zap.String("filename", filename),
		zap.String("md5", md5),
		zap.Int64("size", file.Size),
		zap.String("method", string(params.method)),
		zap.Float64("threshold", params.threshold))

	// 检查缓存
	ctx := c.Request.Context()
	cacheKey := params.cacheKey(md5)
	if cached, err := h.redisService.GetResult(ctx, cacheKey); err != nil {
		utils.Logger.Warn("failed to get cache", zap.Error(err))
	} else if cached != nil {
		utils.Logger.Info("cache hit", zap.String("cache_key", cacheKey))
		c.Data(http.StatusOK, "image/png", cached)
		return
	}

	img := gocv.IMRead(savePath, gocv.IMReadColor)
	if img.Empty() {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "无法解码的图片文件",
		})
		return
	}
	defer img.Close()

	png, err := h.process(img, params)
	if err != nil {
		h.writeProcessError(c, err)
		return
	}

	if err := h.redisService.SetResult(ctx, cacheKey, png); err != nil {
		utils.Logger.Warn("failed to set cache", zap.Error(err))
	}

	c.Data(http.StatusOK, "image/png", png)
}

// BatchRemove 批量处理，单张失败不影响其它图片
func (h *RemoveHandler) BatchRemove(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "请上传图片文件",
			Error:   err.Error(),
		})
		return
	}

	files := form.File["images[]"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "未选择任何文件",
		})
		return
	}

	params := resolveParams(c)

	results := make([]model.BatchItem, 0, len(files))
	for i, file := range files {
		data, err := h.processOne(c, file, params)
		if err != nil {
			utils.Logger.Warn("batch item failed",
				zap.Int("index", i),
				zap.String("filename", file.Filename),
				zap.Error(err))
			results = append(results, model.BatchItem{
				Index:    i,
				Filename: file.Filename,
				Status:   "error",
				Error:    err.Error(),
			})
			continue
		}
		results = append(results, model.BatchItem{
			Index:    i,
			Filename: file.Filename,
			Status:   "success",
			Data:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
		})
	}

	c.JSON(http.StatusOK, model.BatchResponse{Results: results})
}

// processOne 在内存中处理批量请求里的一张图片
func (h *RemoveHandler) processOne(c *gin.Context, file *multipart.FileHeader, params removeParams) ([]byte, error) {
	if file.Size > h.cfg.Upload.MaxSize {
		return nil, fmt.Errorf("文件大小超过限制 (%d MB)", h.cfg.Upload.MaxSize/(1024*1024))
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}

	if err := h.precheckBytes(data); err != nil {
		return nil, fmt.Errorf("无法解码的图片文件: %w", err)
	}

	ctx := c.Request.Context()
	cacheKey := params.cacheKey(utils.BytesMD5(data))
	if cached, err := h.redisService.GetResult(ctx, cacheKey); err != nil {
		utils.Logger.Warn("failed to get cache", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("图片解码失败: %w", err)
	}
	if img.Empty() {
		return nil, errors.New("图片解码失败")
	}
	defer img.Close()

	png, err := h.process(img, params)
	if err != nil {
		return nil, err
	}

	if err := h.redisService.SetResult(ctx, cacheKey, png); err != nil {
		utils.Logger.Warn("failed to set cache", zap.Error(err))
	}

	return png, nil
}

// process 调用分割引擎并编码为PNG
func (h *RemoveHandler) process(img gocv.Mat, params removeParams) ([]byte, error) {
	out, err := h.segmenter.RemoveBackground(img, params.threshold, params.method, params.largestOnly)
	if err != nil {
		out.Close()
		return nil, err
	}
	defer out.Close()

	buf, err := gocv.IMEncode(".png", out)
	if err != nil {
		return nil, fmt.Errorf("PNG编码失败: %w", err)
	}
	defer buf.Close()

	// GetBytes返回的切片指向native内存，关闭前必须拷贝
	png := make([]byte, len(buf.GetBytes()))
	copy(png, buf.GetBytes())
	return png, nil
}

// precheckFile 在进入native处理前校验图片可解码且尺寸合法
func (h *RemoveHandler) precheckFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return h.precheck(f)
}

func (h *RemoveHandler) precheckBytes(data []byte) error {
	return h.precheck(bytes.NewReader(data))
}

func (h *RemoveHandler) precheck(r io.Reader) error {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return err
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return service.ErrInvalidImage
	}
	if h.cfg.Upload.MaxPixels > 0 && cfg.Width*cfg.Height > h.cfg.Upload.MaxPixels {
		return fmt.Errorf("%s image too large: %dx%d", format, cfg.Width, cfg.Height)
	}
	return nil
}

func (h *RemoveHandler) writeProcessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "无效的图片",
			Error:   err.Error(),
		})
	case errors.Is(err, service.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Success: false,
			Message: "处理队列已满，请稍后重试",
		})
	default:
		utils.Logger.Error("failed to process image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "图片处理失败",
			Error:   err.Error(),
		})
	}
}

func (h *RemoveHandler) isAllowedType(contentType string) bool {
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}
