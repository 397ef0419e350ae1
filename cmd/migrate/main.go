// Command migrate 创建数据表，并可选地初始化一个管理员账号。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"resume-chat-go/internal/config"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"
	"resume-chat-go/internal/service"
	"resume-chat-go/pkg/database"
	"resume-chat-go/pkg/log"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	adminUsername := flag.String("admin-username", "", "初始化的管理员用户名，为空则跳过")
	adminPassword := flag.String("admin-password", "", "管理员密码")
	adminName := flag.String("admin-name", "Administrator", "管理员显示名")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal("数据库初始化失败", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("数据表迁移失败", err)
	}
	log.Info("数据表迁移完成")

	if *adminUsername == "" {
		return
	}

	// 创建账号不涉及 token，无需 Redis 与 JWT
	userService := service.NewUserService(repository.NewUserRepository(db), nil, nil)
	_, err = userService.CreateUser(context.Background(), service.NewUser{
		Username: *adminUsername,
		Password: *adminPassword,
		Name:     *adminName,
		Roles:    model.RoleSet{model.RoleAdmin, model.RoleViewer},
	})
	switch {
	case errors.Is(err, service.ErrUsernameTaken):
		log.Infof("管理员 %s 已存在，跳过", *adminUsername)
	case err != nil:
		log.Fatal("创建管理员失败", err)
	default:
		log.Infof("管理员 %s 创建成功", *adminUsername)
	}
}
