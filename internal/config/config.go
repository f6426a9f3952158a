package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Secure    SecureConfig    `mapstructure:"secure"`
	WechatPay WechatPayConfig `mapstructure:"wechat_pay"`
	Business  BusinessConfig  `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	OrderEvent    string `mapstructure:"order_event"`
	WriteOffEvent string `mapstructure:"write_off_event"`
}

// SecureConfig 本地加密与引导配置
type SecureConfig struct {
	LocalAES256Key    string `mapstructure:"local_aes_256_key"` // 32字节主密钥
	JWTTokenSecret    string `mapstructure:"jwt_token_secret"`  // 鉴权协作方使用，核心不读内容
	SuperSystemUserID int64  `mapstructure:"super_system_user_id"`
}

// WechatPayConfig 微信支付 v3 商户参数
type WechatPayConfig struct {
	AppID           string `mapstructure:"app_id"`
	MchID           string `mapstructure:"mch_id"`
	APIv3Key        string `mapstructure:"api_v3_key"` // 32字节，回调解密用
	SerialNo        string `mapstructure:"serial_no"`
	PrivateKeyPath  string `mapstructure:"private_key_path"`
	PayNotifyURL    string `mapstructure:"pay_notify_url"`
	RefundNotifyURL string `mapstructure:"refund_notify_url"`
}

type BusinessConfig struct {
	OrderTimeoutMinutes  int `mapstructure:"order_timeout_minutes"`
	WriteOffCodeTTLSecs  int `mapstructure:"write_off_code_ttl_secs"`
	WriteOffExpireDays   int `mapstructure:"write_off_expire_days"`
	InviteCodeTTLSecs    int `mapstructure:"invite_code_ttl_secs"`
	InviteCodeDailyLimit int `mapstructure:"invite_code_daily_limit"`
	MaxRetryCount        int `mapstructure:"max_retry_count"`
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
