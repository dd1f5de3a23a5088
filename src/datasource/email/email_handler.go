// email_handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"RentalDashboard/src/datasource/file"
	"RentalDashboard/src/storage"
)

// ====================== 邮件处理器实现 ======================

// Target 附件文件名以 Prefix 开头时保存为 Path
type Target struct {
	Prefix string
	Path   string
	// Validate 在替换正式文件前校验临时文件，可以为 nil
	Validate func(path string) error
}

// AttachmentHandler 把数据邮件的附件校验后写入数据目录
type AttachmentHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	targets       []Target
	logger        *storage.Logger
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
}

func NewAttachmentHandler(subject string, logger *storage.Logger, targets ...Target) *AttachmentHandler {
	return &AttachmentHandler{
		TargetSubject: subject,
		targets:       targets,
		logger:        logger,
		processedUIDs: make(map[uint32]bool),
	}
}

// IsProcessed 检查邮件是否已处理过（线程安全）
func (h *AttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

func (h *AttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 保存匹配的附件，返回被替换的文件路径
func (h *AttachmentHandler) Handle(email *Email) ([]string, error) {
	if email == nil || h.IsProcessed(email.UID) {
		return nil, nil
	}
	if !strings.Contains(email.Subject, h.TargetSubject) {
		h.logger.Debug("跳过主题不匹配的邮件", zap.String("subject", email.Subject))
		return nil, nil
	}

	var saved []string
	for _, attachment := range email.Attachments {
		target, ok := h.match(attachment.Filename)
		if !ok {
			h.logger.Debug("忽略附件", zap.String("file", attachment.Filename))
			continue
		}
		if err := h.save(attachment, target); err != nil {
			return saved, fmt.Errorf("附件 %s: %w", attachment.Filename, err)
		}
		h.logger.Info("附件已保存", zap.String("file", attachment.Filename), zap.String("path", target.Path))
		saved = append(saved, target.Path)
	}

	// 有附件被采用才标记，否则下次还会检查
	if len(saved) > 0 {
		h.markAsProcessed(email.UID)
	}
	return saved, nil
}

// match 文件名前缀和扩展名都需要与目标一致
func (h *AttachmentHandler) match(filename string) (Target, bool) {
	name := strings.ToLower(filepath.Base(filename))
	ext := filepath.Ext(name)
	for _, t := range h.targets {
		if strings.HasPrefix(name, strings.ToLower(t.Prefix)) && strings.EqualFold(ext, filepath.Ext(t.Path)) {
			return t, true
		}
	}
	return Target{}, false
}

// save 先写临时文件并校验，通过后再改名覆盖，失败时原文件不变
func (h *AttachmentHandler) save(a *Attachment, t Target) error {
	dir := filepath.Dir(t.Path)
	if err := file.EnsureDir(dir); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	tmp := filepath.Join(dir, ".incoming-"+filepath.Base(t.Path))
	if err := os.WriteFile(tmp, a.Content, 0644); err != nil {
		return fmt.Errorf("保存附件失败: %w", err)
	}
	if t.Validate != nil {
		if err := t.Validate(tmp); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("数据校验失败: %w", err)
		}
	}
	if err := os.Rename(tmp, t.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("替换数据文件失败: %w", err)
	}
	return nil
}
