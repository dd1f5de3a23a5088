package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// 通知正在运行的看板重新加载数据并重新打开日志文件
func main() {
	pidFile := flag.String("pid", "rental-dashboard.pid", "看板进程写入的 pid 文件")
	flag.Parse()

	data, err := os.ReadFile(*pidFile)
	if err != nil {
		log.Fatal("Failed to read pid file: ", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		log.Fatalf("pid 文件内容无效 %q: %v", data, err)
	}

	// 向看板进程发送 SIGHUP
	if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
		log.Fatal("Failed to send SIGHUP: ", err)
	}
	log.Printf("已通知进程 %d 重新加载", pid)
}
