package config

type AppConfig struct {
	Server ServerConfig
	LLM    LLMConfig
	Log    LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	llmCfg, err := LoadLLM()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		LLM:    llmCfg,
		Log:    logCfg,
	}, nil
}
