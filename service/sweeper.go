package service

import (
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/j031nich0145/noBG/config"
	"github.com/j031nich0145/noBG/utils"
)

// SweeperService 定时清理上传目录中的过期临时文件
// 正常流程处理完即删，这里兜底清理异常退出残留的文件
type SweeperService struct {
	dir    string
	maxAge time.Duration
	cron   *cron.Cron
}

func NewSweeperService(cfg *config.UploadConfig) *SweeperService {
	return &SweeperService{
		dir:    cfg.UploadDir,
		maxAge: cfg.MaxAge,
		cron:   cron.New(),
	}
}

func (s *SweeperService) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *SweeperService) Stop() {
	s.cron.Stop()
}

func (s *SweeperService) sweep() {
	deadline := time.Now().Add(-s.maxAge)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		utils.Logger.Warn("failed to read upload dir", zap.Error(err))
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(deadline) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			utils.Logger.Warn("failed to remove stale upload",
				zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		utils.Logger.Info("swept stale uploads", zap.Int("removed", removed))
	}
}
